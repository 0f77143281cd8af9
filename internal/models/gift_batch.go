package models

import "time"

// BatchType distinguishes bulk creation from bulk updates.
type BatchType string

const (
	BatchTypeImport BatchType = "IMPORT"
	BatchTypeUpdate BatchType = "UPDATE"
)

// BatchStatus captures the lifecycle of a bulk operation.
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
	BatchStatusRolledBack BatchStatus = "ROLLED_BACK"
)

// GiftBatch is the header of one bulk import or bulk update.
type GiftBatch struct {
	ID             int64       `db:"batch_id" json:"batchId"`
	Name           string      `db:"batch_name" json:"batchName"`
	Type           BatchType   `db:"batch_type" json:"batchType"`
	Tab            string      `db:"tab" json:"tab"`
	TransactionRef string      `db:"transaction_ref" json:"transactionRef"`
	TotalRows      int         `db:"total_rows" json:"totalRows"`
	SuccessRows    int         `db:"success_rows" json:"successRows"`
	FailedRows     int         `db:"failed_rows" json:"failedRows"`
	Status         BatchStatus `db:"status" json:"status"`
	IsActive       bool        `db:"is_active" json:"isActive"`
	CreatedBy      string      `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	CompletedAt    *time.Time  `db:"completed_at" json:"completedAt,omitempty"`
	RollbackReason *string     `db:"rollback_reason" json:"rollbackReason,omitempty"`
	RolledBackRows *int        `db:"rolled_back_rows" json:"rolledBackRows,omitempty"`
	RolledBackAt   *time.Time  `db:"rolled_back_at" json:"rolledBackAt,omitempty"`
	RolledBackBy   *string     `db:"rolled_back_by" json:"rolledBackBy,omitempty"`
}

// GiftBatchFilter constrains batch listings.
type GiftBatchFilter struct {
	Type   BatchType
	Tab    string
	Status BatchStatus
	Limit  int
	Offset int
}

// RollbackLog records one compensating rollback.
type RollbackLog struct {
	ID             string    `db:"id" json:"id"`
	BatchID        int64     `db:"batch_id" json:"batchId"`
	TransactionRef string    `db:"transaction_ref" json:"transactionRef"`
	Tab            string    `db:"tab" json:"tab"`
	ActorID        string    `db:"actor_id" json:"actorId"`
	RolledBackRows int       `db:"rolled_back_rows" json:"rolledBackRows"`
	TotalRows      int       `db:"total_rows" json:"totalRows"`
	SuccessRows    int       `db:"success_rows" json:"successRows"`
	FailedRows     int       `db:"failed_rows" json:"failedRows"`
	Reason         string    `db:"reason" json:"reason"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
