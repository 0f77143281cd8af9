package models

import "time"

// TimelineEntry is one immutable status change of a gift request. FromStatus is
// nil for the creation entry.
type TimelineEntry struct {
	ID         int64     `db:"id" json:"id"`
	GiftID     int64     `db:"gift_id" json:"giftId"`
	FromStatus *string   `db:"from_status" json:"fromStatus"`
	ToStatus   string    `db:"to_status" json:"toStatus"`
	ChangedBy  string    `db:"changed_by" json:"changedBy"`
	Remark     *string   `db:"remark" json:"remark,omitempty"`
	ChangedAt  time.Time `db:"changed_at" json:"changedAt"`
}
