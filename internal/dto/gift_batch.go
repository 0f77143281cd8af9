package dto

import (
	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
)

// ImportRow is one sheet row of a bulk creation.
type ImportRow = CreateGiftRequest

// ImportRequest creates many gift requests under one batch.
type ImportRequest struct {
	BatchName string      `json:"batchName"`
	Rows      []ImportRow `json:"rows"`
}

// RowFailure describes why one bulk row was not applied. Row is 1-based.
type RowFailure struct {
	Row    int    `json:"row"`
	GiftID int64  `json:"giftId,omitempty"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// ImportResult reports a committed bulk creation.
type ImportResult struct {
	BatchID        int64        `json:"batchId"`
	BatchName      string       `json:"batchName"`
	TransactionRef string       `json:"transactionRef"`
	TotalRows      int          `json:"totalRows"`
	ImportedCount  int          `json:"importedCount"`
	FailedCount    int          `json:"failedCount"`
	GiftIDs        []int64      `json:"giftIds"`
	FailedRows     []RowFailure `json:"failedRows"`
}

// BulkUpdateRow is one sheet row of a bulk update. MemberLogin, MerchantName and
// Currency must match the stored request.
type BulkUpdateRow struct {
	GiftID       int64  `json:"giftId" validate:"required,gt=0"`
	MemberLogin  string `json:"memberLogin" validate:"required"`
	MerchantName string `json:"merchantName" validate:"required"`
	Currency     string `json:"currency" validate:"required"`
	Decision     string `json:"decision"`

	Dispatcher     string `json:"dispatcher"`
	TrackingCode   string `json:"trackingCode"`
	TrackingStatus string `json:"trackingStatus"`
	MKTOpsProof    string `json:"mktopsProof"`
	KAMProof       string `json:"kamProof"`
	Feedback       string `json:"feedback"`
	AuditRemark    string `json:"auditRemark"`
}

// Payload extracts the transition payload of the row.
func (r BulkUpdateRow) Payload() workflow.Payload {
	return workflow.Payload{
		Dispatcher:     r.Dispatcher,
		TrackingCode:   r.TrackingCode,
		TrackingStatus: r.TrackingStatus,
		MKTOpsProof:    r.MKTOpsProof,
		KAMProof:       r.KAMProof,
		Feedback:       r.Feedback,
		AuditRemark:    r.AuditRemark,
	}.Normalize()
}

// BulkUpdateRequest applies one tab's sheet to many requests.
type BulkUpdateRequest struct {
	Tab  string          `json:"tab"`
	Rows []BulkUpdateRow `json:"rows"`
}

// BulkUpdateResult reports a committed bulk update. UpdatedCount > 0 together
// with FailedCount > 0 is a partial success.
type BulkUpdateResult struct {
	BatchID        int64        `json:"batchId"`
	TransactionRef string       `json:"transactionRef"`
	Tab            workflow.Tab `json:"tab"`
	TotalRows      int          `json:"totalRows"`
	UpdatedCount   int          `json:"updatedCount"`
	FailedCount    int          `json:"failedCount"`
	FailedRows     []RowFailure `json:"failedRows"`
}

// RollbackRequest targets a batch by transaction reference or id.
type RollbackRequest struct {
	Tab            string `json:"tab"`
	TransactionRef string `json:"transactionRef"`
	BatchID        int64  `json:"batchId"`
	Reason         string `json:"reason"`
}

// RollbackResult reports a committed compensating rollback.
type RollbackResult struct {
	BatchID         int64        `json:"batchId"`
	TransactionRef  string       `json:"transactionRef"`
	Tab             workflow.Tab `json:"tab"`
	RolledBackCount int          `json:"rolledBackCount"`
	FailedCount     int          `json:"failedCount"`
	FailedRows      []RowFailure `json:"failedRows"`
	RollbackLogID   string       `json:"rollbackLogId"`
}

// BatchListQuery mirrors supported batch listing filters.
type BatchListQuery struct {
	Type   models.BatchType
	Tab    string
	Status models.BatchStatus
	Limit  int
	Offset int
}

// BatchDetail is a batch header with its rollback history.
type BatchDetail struct {
	Batch     models.GiftBatch     `json:"batch"`
	Rollbacks []models.RollbackLog `json:"rollbacks"`
}
