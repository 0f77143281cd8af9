package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/models"
)

// RollbackLogRepository stores the audit trail of compensating rollbacks.
type RollbackLogRepository struct {
	db *sqlx.DB
}

// NewRollbackLogRepository constructs the repository.
func NewRollbackLogRepository(db *sqlx.DB) *RollbackLogRepository {
	return &RollbackLogRepository{db: db}
}

// Insert appends a rollback log row on tx.
func (r *RollbackLogRepository) Insert(ctx context.Context, tx sqlx.ExtContext, log *models.RollbackLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO gift_rollback_logs
	(id, batch_id, transaction_ref, tab, actor_id, rolled_back_rows, total_rows, success_rows, failed_rows, reason, created_at)
	VALUES (:id, :batch_id, :transaction_ref, :tab, :actor_id, :rolled_back_rows, :total_rows, :success_rows, :failed_rows, :reason, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, log); err != nil {
		return fmt.Errorf("insert rollback log: %w", err)
	}
	return nil
}

// ListByBatch returns the rollback history of a batch.
func (r *RollbackLogRepository) ListByBatch(ctx context.Context, batchID int64) ([]models.RollbackLog, error) {
	const query = `SELECT id, batch_id, transaction_ref, tab, actor_id, rolled_back_rows, total_rows, success_rows,
       failed_rows, reason, created_at
	FROM gift_rollback_logs WHERE batch_id = $1 ORDER BY created_at DESC`
	var logs []models.RollbackLog
	if err := r.db.SelectContext(ctx, &logs, query, batchID); err != nil {
		return nil, fmt.Errorf("list rollback logs: %w", err)
	}
	return logs, nil
}
