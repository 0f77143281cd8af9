package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var giftRowColumns = []string{
	"gift_id", "batch_id", "member_id", "member_login", "merchant_name", "currency", "vip_level",
	"gift_item", "category", "reward_name", "cost_myr", "cost_vnd", "remark", "kam_requested_by", "workflow_status",
	"approval_reviewed_by", "rejected_by", "rejection_reason", "dispatcher", "tracking_code", "tracking_status",
	"purchased_by", "purchased_date", "delivered_at", "mktops_proof", "is_bo", "kam_proof", "kam_proof_by",
	"gift_feedback", "audited_by", "audit_remark", "audit_date", "created_at", "last_modified_at",
}

func giftRow(id int64, status string, trackingStatus driver.Value) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, nil, int64(10), "member01", "Merchant A", "MYR", nil,
		"Watch", "Birthday", nil, 120.5, nil, nil, "kam-1", status,
		nil, nil, nil, nil, nil, trackingStatus,
		nil, nil, nil, nil, nil, nil, nil,
		nil, nil, nil, nil, now, now,
	}
}
