package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/models"
)

const batchColumns = `batch_id, batch_name, batch_type, tab, transaction_ref, total_rows, success_rows, failed_rows,
       status, is_active, created_by, created_at, completed_at, rollback_reason, rolled_back_rows, rolled_back_at,
       rolled_back_by`

// GiftBatchRepository persists bulk operation headers and their touched rows.
type GiftBatchRepository struct {
	db *sqlx.DB
}

// NewGiftBatchRepository constructs the repository.
func NewGiftBatchRepository(db *sqlx.DB) *GiftBatchRepository {
	return &GiftBatchRepository{db: db}
}

// Create inserts the header in PROCESSING state and fills its generated id.
func (r *GiftBatchRepository) Create(ctx context.Context, tx sqlx.ExtContext, batch *models.GiftBatch) error {
	if batch.TransactionRef == "" {
		batch.TransactionRef = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusProcessing
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO gift_batches
	(batch_name, batch_type, tab, transaction_ref, total_rows, success_rows, failed_rows, status, is_active, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, 0, 0, $6, FALSE, $7, $8)
	RETURNING batch_id`
	err := tx.QueryRowxContext(ctx, query,
		batch.Name, batch.Type, batch.Tab, batch.TransactionRef, batch.TotalRows, batch.Status, batch.CreatedBy, batch.CreatedAt,
	).Scan(&batch.ID)
	if err != nil {
		return fmt.Errorf("create gift batch: %w", err)
	}
	return nil
}

// Finalize marks the batch completed with its row outcome counts. The batch is
// active only when at least one row succeeded.
func (r *GiftBatchRepository) Finalize(ctx context.Context, tx sqlx.ExtContext, id int64, success, failed int, now time.Time) error {
	const query = `UPDATE gift_batches
	SET success_rows = $1, failed_rows = $2, status = $3, is_active = $4, completed_at = $5
	WHERE batch_id = $6`
	if _, err := tx.ExecContext(ctx, query, success, failed, models.BatchStatusCompleted, success > 0, now, id); err != nil {
		return fmt.Errorf("finalize gift batch: %w", err)
	}
	return nil
}

// RecordFailure stores an inactive FAILED header on its own connection. It runs
// after the owning transaction rolled back, which also discarded the original
// header insert.
func (r *GiftBatchRepository) RecordFailure(ctx context.Context, batch models.GiftBatch, reason string) error {
	const query = `INSERT INTO gift_batches
	(batch_name, batch_type, tab, transaction_ref, total_rows, success_rows, failed_rows, status, is_active, created_by, created_at, completed_at, rollback_reason)
	VALUES ($1, $2, $3, $4, $5, 0, $5, $6, FALSE, $7, $8, $9, $10)
	ON CONFLICT (transaction_ref) DO UPDATE SET status = EXCLUDED.status, is_active = FALSE, completed_at = EXCLUDED.completed_at`
	_, err := r.db.ExecContext(ctx, query,
		batch.Name, batch.Type, batch.Tab, batch.TransactionRef, batch.TotalRows, models.BatchStatusFailed,
		batch.CreatedBy, batch.CreatedAt, time.Now().UTC(), reason,
	)
	if err != nil {
		return fmt.Errorf("record gift batch failure: %w", err)
	}
	return nil
}

// AddItems records the requests a bulk update touched, in one statement.
// Repeated ids collapse into one item row.
func (r *GiftBatchRepository) AddItems(ctx context.Context, tx sqlx.ExtContext, batchID int64, giftIDs []int64) error {
	if len(giftIDs) == 0 {
		return nil
	}
	values := make([]string, 0, len(giftIDs))
	args := make([]interface{}, 0, len(giftIDs)+1)
	args = append(args, batchID)
	seen := make(map[int64]struct{}, len(giftIDs))
	for _, id := range giftIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
		values = append(values, fmt.Sprintf("($1, $%d)", len(args)))
	}
	query := "INSERT INTO gift_batch_items (batch_id, gift_id) VALUES " + strings.Join(values, ", ") +
		" ON CONFLICT (batch_id, gift_id) DO NOTHING"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert gift batch items: %w", err)
	}
	return nil
}

// ItemIDs lists the requests a bulk update touched.
func (r *GiftBatchRepository) ItemIDs(ctx context.Context, tx sqlx.ExtContext, batchID int64) ([]int64, error) {
	const query = `SELECT gift_id FROM gift_batch_items WHERE batch_id = $1 ORDER BY gift_id`
	var ids []int64
	if err := sqlx.SelectContext(ctx, tx, &ids, query, batchID); err != nil {
		return nil, fmt.Errorf("list gift batch items: %w", err)
	}
	return ids, nil
}

// GetByID fetches a batch header.
func (r *GiftBatchRepository) GetByID(ctx context.Context, id int64) (*models.GiftBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM gift_batches WHERE batch_id = $1`
	var batch models.GiftBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// LockByID reads a batch header inside tx and holds its row lock.
func (r *GiftBatchRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.GiftBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM gift_batches WHERE batch_id = $1 FOR UPDATE`
	var batch models.GiftBatch
	if err := sqlx.GetContext(ctx, tx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// LockByTransactionRef resolves and locks a batch by its transaction reference.
func (r *GiftBatchRepository) LockByTransactionRef(ctx context.Context, tx sqlx.ExtContext, ref string) (*models.GiftBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM gift_batches WHERE transaction_ref = $1 FOR UPDATE`
	var batch models.GiftBatch
	if err := sqlx.GetContext(ctx, tx, &batch, query, ref); err != nil {
		return nil, err
	}
	return &batch, nil
}

// MarkRolledBack closes a batch after its compensating rollback.
func (r *GiftBatchRepository) MarkRolledBack(ctx context.Context, tx sqlx.ExtContext, id int64, rows int, reason, actorID string, now time.Time) error {
	const query = `UPDATE gift_batches
	SET status = $1, is_active = FALSE, rollback_reason = $2, rolled_back_rows = $3, rolled_back_at = $4, rolled_back_by = $5
	WHERE batch_id = $6`
	if _, err := tx.ExecContext(ctx, query, models.BatchStatusRolledBack, reason, rows, now, actorID, id); err != nil {
		return fmt.Errorf("mark gift batch rolled back: %w", err)
	}
	return nil
}

// List returns batch headers matching the filter, newest first.
func (r *GiftBatchRepository) List(ctx context.Context, filter models.GiftBatchFilter) ([]models.GiftBatch, error) {
	limit, offset := pageWindow(filter.Limit, filter.Offset)
	query := psql.Select(batchColumns).From("gift_batches")
	if filter.Type != "" {
		query = query.Where(sq.Eq{"batch_type": filter.Type})
	}
	if filter.Tab != "" {
		query = query.Where(sq.Eq{"tab": filter.Tab})
	}
	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": filter.Status})
	}
	sqlStr, args, err := query.OrderBy("created_at DESC").Limit(limit).Offset(offset).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build gift batch list: %w", err)
	}

	var batches []models.GiftBatch
	if err := r.db.SelectContext(ctx, &batches, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list gift batches: %w", err)
	}
	return batches, nil
}
