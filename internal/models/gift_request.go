package models

import (
	"time"

	"github.com/noah-isme/gift-approval-api/internal/workflow"
)

// GiftCategory enumerates the gift categories accepted on creation.
type GiftCategory string

const (
	GiftCategoryBirthday GiftCategory = "Birthday"
	GiftCategoryOffline  GiftCategory = "Offline"
	GiftCategoryOnline   GiftCategory = "Online"
	GiftCategoryFestival GiftCategory = "Festival"
	GiftCategoryOthers   GiftCategory = "Others"
)

// GiftRequest is one gift moving through the approval pipeline.
type GiftRequest struct {
	ID           int64    `db:"gift_id" json:"giftId"`
	BatchID      *int64   `db:"batch_id" json:"batchId,omitempty"`
	MemberID     int64    `db:"member_id" json:"memberId"`
	MemberLogin  string   `db:"member_login" json:"memberLogin"`
	MerchantName string   `db:"merchant_name" json:"merchantName"`
	Currency     string   `db:"currency" json:"currency"`
	VIPLevel     *string  `db:"vip_level" json:"vipLevel,omitempty"`
	GiftItem     string   `db:"gift_item" json:"giftItem"`
	Category     string   `db:"category" json:"category"`
	RewardName   *string  `db:"reward_name" json:"rewardName,omitempty"`
	CostMYR      float64  `db:"cost_myr" json:"costMyr"`
	CostVND      *float64 `db:"cost_vnd" json:"costVnd,omitempty"`
	Remark       *string  `db:"remark" json:"remark,omitempty"`

	KAMRequestedBy string          `db:"kam_requested_by" json:"kamRequestedBy"`
	WorkflowStatus workflow.Status `db:"workflow_status" json:"workflowStatus"`

	ApprovalReviewedBy *string    `db:"approval_reviewed_by" json:"approvalReviewedBy,omitempty"`
	RejectedBy         *string    `db:"rejected_by" json:"rejectedBy,omitempty"`
	RejectionReason    *string    `db:"rejection_reason" json:"rejectionReason,omitempty"`
	Dispatcher         *string    `db:"dispatcher" json:"dispatcher,omitempty"`
	TrackingCode       *string    `db:"tracking_code" json:"trackingCode,omitempty"`
	TrackingStatus     *string    `db:"tracking_status" json:"trackingStatus,omitempty"`
	PurchasedBy        *string    `db:"purchased_by" json:"purchasedBy,omitempty"`
	PurchasedDate      *time.Time `db:"purchased_date" json:"purchasedDate,omitempty"`
	DeliveredAt        *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`
	MKTOpsProof        *string    `db:"mktops_proof" json:"mktopsProof,omitempty"`
	IsBO               *bool      `db:"is_bo" json:"isBo,omitempty"`
	KAMProof           *string    `db:"kam_proof" json:"kamProof,omitempty"`
	KAMProofBy         *string    `db:"kam_proof_by" json:"kamProofBy,omitempty"`
	GiftFeedback       *string    `db:"gift_feedback" json:"giftFeedback,omitempty"`
	AuditedBy          *string    `db:"audited_by" json:"auditedBy,omitempty"`
	AuditRemark        *string    `db:"audit_remark" json:"auditRemark,omitempty"`
	AuditDate          *time.Time `db:"audit_date" json:"auditDate,omitempty"`

	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	LastModifiedAt time.Time `db:"last_modified_at" json:"lastModifiedAt"`
}

// Snapshot returns the state a transition consults.
func (g *GiftRequest) Snapshot() workflow.Snapshot {
	snap := workflow.Snapshot{Status: g.WorkflowStatus, IsBO: g.IsBO}
	if g.TrackingStatus != nil {
		snap.TrackingStatus = *g.TrackingStatus
	}
	return snap
}

// DeliveryState returns the fields the delivery preconditions read.
func (g *GiftRequest) DeliveryState() workflow.DeliveryState {
	return workflow.DeliveryState{
		Dispatcher:     deref(g.Dispatcher),
		TrackingCode:   deref(g.TrackingCode),
		TrackingStatus: deref(g.TrackingStatus),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GiftRequestFilter constrains listing queries. Requests of inactive batches are always excluded.
type GiftRequestFilter struct {
	Status      []workflow.Status
	BatchID     *int64
	MemberLogin string
	Limit       int
	Offset      int
}

// GiftIdentity is the joined read used to cross-validate bulk sheet rows.
type GiftIdentity struct {
	GiftID         int64           `db:"gift_id"`
	MemberLogin    string          `db:"member_login"`
	MerchantName   string          `db:"merchant_name"`
	Currency       string          `db:"currency"`
	WorkflowStatus workflow.Status `db:"workflow_status"`
	TrackingStatus *string         `db:"tracking_status"`
	IsBO           *bool           `db:"is_bo"`
}
