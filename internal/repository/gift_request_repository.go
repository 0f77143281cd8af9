package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
)

const giftColumns = `g.gift_id, g.batch_id, g.member_id, g.member_login, g.merchant_name, g.currency, g.vip_level,
       g.gift_item, g.category, g.reward_name, g.cost_myr, g.cost_vnd, g.remark, g.kam_requested_by, g.workflow_status,
       g.approval_reviewed_by, g.rejected_by, g.rejection_reason, g.dispatcher, g.tracking_code, g.tracking_status,
       g.purchased_by, g.purchased_date, g.delivered_at, g.mktops_proof, g.is_bo, g.kam_proof, g.kam_proof_by,
       g.gift_feedback, g.audited_by, g.audit_remark, g.audit_date, g.created_at, g.last_modified_at`

// activeBatchFilter hides requests whose import batch was rolled back or failed.
const activeBatchFilter = `(g.batch_id IS NULL OR EXISTS (SELECT 1 FROM gift_batches b WHERE b.batch_id = g.batch_id AND b.is_active))`

// writableColumns guards the dynamic SET clause.
var writableColumns = map[string]struct{}{
	workflow.ColWorkflowStatus:     {},
	workflow.ColApprovalReviewedBy: {},
	workflow.ColRejectedBy:         {},
	workflow.ColRejectionReason:    {},
	workflow.ColDispatcher:         {},
	workflow.ColTrackingCode:       {},
	workflow.ColTrackingStatus:     {},
	workflow.ColPurchasedBy:        {},
	workflow.ColPurchasedDate:      {},
	workflow.ColDeliveredAt:        {},
	workflow.ColMKTOpsProof:        {},
	workflow.ColIsBO:               {},
	workflow.ColKAMProof:           {},
	workflow.ColKAMProofBy:         {},
	workflow.ColGiftFeedback:       {},
	workflow.ColAuditedBy:          {},
	workflow.ColAuditRemark:        {},
	workflow.ColAuditDate:          {},
}

// GiftRequestRepository is the record store for gift requests.
type GiftRequestRepository struct {
	db *sqlx.DB
}

// NewGiftRequestRepository constructs the repository.
func NewGiftRequestRepository(db *sqlx.DB) *GiftRequestRepository {
	return &GiftRequestRepository{db: db}
}

// GetByID fetches a visible request. Missing rows return sql.ErrNoRows.
func (r *GiftRequestRepository) GetByID(ctx context.Context, id int64) (*models.GiftRequest, error) {
	query := `SELECT ` + giftColumns + ` FROM gift_requests g WHERE g.gift_id = $1 AND ` + activeBatchFilter
	var gift models.GiftRequest
	if err := r.db.GetContext(ctx, &gift, query, id); err != nil {
		return nil, err
	}
	return &gift, nil
}

// LockByID reads a visible request and holds its row lock for the rest of tx.
func (r *GiftRequestRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.GiftRequest, error) {
	query := `SELECT ` + giftColumns + ` FROM gift_requests g WHERE g.gift_id = $1 AND ` + activeBatchFilter + ` FOR UPDATE`
	var gift models.GiftRequest
	if err := sqlx.GetContext(ctx, tx, &gift, query, id); err != nil {
		return nil, err
	}
	return &gift, nil
}

// LockIdentity performs the joined cross-validation read of a bulk sheet row and
// locks the request row.
func (r *GiftRequestRepository) LockIdentity(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.GiftIdentity, error) {
	query := `SELECT g.gift_id, m.member_login, m.merchant_name, m.currency, g.workflow_status, g.tracking_status, g.is_bo
	FROM gift_requests g
	JOIN members m ON m.member_id = g.member_id
	WHERE g.gift_id = $1 AND ` + activeBatchFilter + `
	FOR UPDATE OF g`
	var identity models.GiftIdentity
	if err := sqlx.GetContext(ctx, tx, &identity, query, id); err != nil {
		return nil, err
	}
	return &identity, nil
}

// DeliveryState reads the fulfillment fields the delivery preconditions check.
func (r *GiftRequestRepository) DeliveryState(ctx context.Context, tx sqlx.ExtContext, id int64) (workflow.DeliveryState, error) {
	const query = `SELECT COALESCE(dispatcher, '') AS dispatcher, COALESCE(tracking_code, '') AS tracking_code,
       COALESCE(tracking_status, '') AS tracking_status
	FROM gift_requests WHERE gift_id = $1`
	var row struct {
		Dispatcher     string `db:"dispatcher"`
		TrackingCode   string `db:"tracking_code"`
		TrackingStatus string `db:"tracking_status"`
	}
	if err := sqlx.GetContext(ctx, tx, &row, query, id); err != nil {
		return workflow.DeliveryState{}, err
	}
	return workflow.DeliveryState{
		Dispatcher:     row.Dispatcher,
		TrackingCode:   row.TrackingCode,
		TrackingStatus: row.TrackingStatus,
	}, nil
}

// ApplyAssignments issues the single UPDATE of a transition. The statement only
// matches while the row still holds expected; zero affected rows returns
// ErrStaleStatus.
func (r *GiftRequestRepository) ApplyAssignments(ctx context.Context, tx sqlx.ExtContext, id int64, expected workflow.Status, assignments []workflow.Assignment, now time.Time) error {
	setParts := make([]string, 0, len(assignments)+1)
	args := make([]interface{}, 0, len(assignments)+3)
	for _, a := range assignments {
		if _, ok := writableColumns[a.Column]; !ok {
			return fmt.Errorf("apply assignments: column %q is not writable", a.Column)
		}
		args = append(args, a.Value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", a.Column, len(args)))
	}
	args = append(args, now)
	setParts = append(setParts, fmt.Sprintf("last_modified_at = $%d", len(args)))
	args = append(args, id, expected)

	query := fmt.Sprintf("UPDATE gift_requests SET %s WHERE gift_id = $%d AND workflow_status = $%d",
		strings.Join(setParts, ", "), len(args)-1, len(args))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply assignments: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assignment rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleStatus
	}
	return nil
}

// Insert creates a request and fills its generated id.
func (r *GiftRequestRepository) Insert(ctx context.Context, tx sqlx.ExtContext, gift *models.GiftRequest) error {
	if gift.WorkflowStatus == "" {
		gift.WorkflowStatus = workflow.StatusKAMRequest
	}
	if gift.CreatedAt.IsZero() {
		gift.CreatedAt = time.Now().UTC()
	}
	gift.LastModifiedAt = gift.CreatedAt
	const query = `INSERT INTO gift_requests
	(batch_id, member_id, member_login, merchant_name, currency, vip_level, gift_item, category, reward_name,
	 cost_myr, cost_vnd, remark, kam_requested_by, workflow_status, created_at, last_modified_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	RETURNING gift_id`
	err := tx.QueryRowxContext(ctx, query,
		gift.BatchID, gift.MemberID, gift.MemberLogin, gift.MerchantName, gift.Currency, gift.VIPLevel,
		gift.GiftItem, gift.Category, gift.RewardName, gift.CostMYR, gift.CostVND, gift.Remark,
		gift.KAMRequestedBy, gift.WorkflowStatus, gift.CreatedAt,
	).Scan(&gift.ID)
	if err != nil {
		return fmt.Errorf("insert gift request: %w", err)
	}
	return nil
}

// AdvanceBatch moves every request of batchID still in from to to, in one statement.
func (r *GiftRequestRepository) AdvanceBatch(ctx context.Context, tx sqlx.ExtContext, batchID int64, from, to workflow.Status, now time.Time) (int64, error) {
	const query = `UPDATE gift_requests SET workflow_status = $1, last_modified_at = $2
	WHERE batch_id = $3 AND workflow_status = $4`
	result, err := tx.ExecContext(ctx, query, to, now, batchID, from)
	if err != nil {
		return 0, fmt.Errorf("advance batch requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check advanced rows: %w", err)
	}
	return rows, nil
}

// List returns visible requests matching the filter, newest first.
func (r *GiftRequestRepository) List(ctx context.Context, filter models.GiftRequestFilter) ([]models.GiftRequest, error) {
	limit, offset := pageWindow(filter.Limit, filter.Offset)
	query := psql.Select(giftColumns).From("gift_requests g").Where(activeBatchFilter)
	if len(filter.Status) > 0 {
		query = query.Where(sq.Eq{"g.workflow_status": filter.Status})
	}
	if filter.BatchID != nil {
		query = query.Where(sq.Eq{"g.batch_id": *filter.BatchID})
	}
	if filter.MemberLogin != "" {
		query = query.Where(sq.Eq{"g.member_login": filter.MemberLogin})
	}
	sqlStr, args, err := query.OrderBy("g.gift_id DESC").Limit(limit).Offset(offset).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build gift request list: %w", err)
	}

	var gifts []models.GiftRequest
	if err := r.db.SelectContext(ctx, &gifts, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list gift requests: %w", err)
	}
	return gifts, nil
}

// ListByBatch returns every request a batch created or touched, regardless of
// batch visibility.
func (r *GiftRequestRepository) ListByBatch(ctx context.Context, batchID int64) ([]models.GiftRequest, error) {
	query := `SELECT ` + giftColumns + ` FROM gift_requests g
	WHERE g.batch_id = $1 OR g.gift_id IN (SELECT i.gift_id FROM gift_batch_items i WHERE i.batch_id = $1)
	ORDER BY g.gift_id`
	var gifts []models.GiftRequest
	if err := r.db.SelectContext(ctx, &gifts, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch requests: %w", err)
	}
	return gifts, nil
}
