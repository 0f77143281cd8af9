package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/models"
)

// TimelineRepository appends and reads workflow timeline entries. Entries are
// never updated or deleted.
type TimelineRepository struct {
	db *sqlx.DB
}

// NewTimelineRepository constructs the repository.
func NewTimelineRepository(db *sqlx.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Append writes one entry outside any transaction.
func (r *TimelineRepository) Append(ctx context.Context, entry models.TimelineEntry) error {
	return r.AppendMany(ctx, r.db, []models.TimelineEntry{entry})
}

// AppendMany writes every entry with a single multi-row INSERT on q.
func (r *TimelineRepository) AppendMany(ctx context.Context, q sqlx.ExecerContext, entries []models.TimelineEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]string, len(entries))
	args := make([]interface{}, 0, len(entries)*6)
	for i, entry := range entries {
		changedAt := entry.ChangedAt
		if changedAt.IsZero() {
			changedAt = time.Now().UTC()
		}
		base := len(args)
		args = append(args, entry.GiftID, entry.FromStatus, entry.ToStatus, entry.ChangedBy, entry.Remark, changedAt)
		values[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
	}
	query := "INSERT INTO gift_workflow_timeline (gift_id, from_status, to_status, changed_by, remark, changed_at) VALUES " +
		strings.Join(values, ", ")
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append timeline entries: %w", err)
	}
	return nil
}

// ListByGift returns a request's entries oldest first.
func (r *TimelineRepository) ListByGift(ctx context.Context, giftID int64) ([]models.TimelineEntry, error) {
	const query = `SELECT id, gift_id, from_status, to_status, changed_by, remark, changed_at
	FROM gift_workflow_timeline WHERE gift_id = $1 ORDER BY changed_at, id`
	var entries []models.TimelineEntry
	if err := r.db.SelectContext(ctx, &entries, query, giftID); err != nil {
		return nil, fmt.Errorf("list timeline entries: %w", err)
	}
	return entries, nil
}
