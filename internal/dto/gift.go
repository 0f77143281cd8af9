package dto

import (
	"github.com/noah-isme/gift-approval-api/internal/workflow"
)

// CreateGiftRequest is the payload of an individually created gift request.
type CreateGiftRequest struct {
	MemberLogin string   `json:"memberLogin" validate:"required,max=100"`
	GiftItem    string   `json:"giftItem" validate:"required,max=255"`
	Category    string   `json:"category" validate:"required,oneof=Birthday Offline Online Festival Others"`
	RewardName  string   `json:"rewardName" validate:"omitempty,max=255"`
	CostMYR     float64  `json:"costMyr" validate:"gte=0"`
	CostVND     *float64 `json:"costVnd" validate:"omitempty,gte=0"`
	Remark      string   `json:"remark" validate:"omitempty,max=1000"`
}

// TransitionRequest asks for one action on one gift request.
type TransitionRequest struct {
	Tab     string           `json:"tab"`
	Action  string           `json:"action"`
	Payload workflow.Payload `json:"payload"`
}

// TransitionResult reports the outcome of a committed transition. NewStatus is
// empty for status-preserving actions.
type TransitionResult struct {
	GiftID         int64           `json:"giftId"`
	Tab            workflow.Tab    `json:"tab"`
	Action         workflow.Action `json:"action"`
	PreviousStatus workflow.Status `json:"previousStatus"`
	NewStatus      workflow.Status `json:"newStatus,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// GiftListQuery mirrors supported listing filters.
type GiftListQuery struct {
	Status      []workflow.Status
	BatchID     *int64
	MemberLogin string
	Limit       int
	Offset      int
}
