package workflow

import (
	"sort"
	"strings"
	"time"
)

// Columns of gift_requests written by transitions.
const (
	ColWorkflowStatus     = "workflow_status"
	ColApprovalReviewedBy = "approval_reviewed_by"
	ColRejectedBy         = "rejected_by"
	ColRejectionReason    = "rejection_reason"
	ColDispatcher         = "dispatcher"
	ColTrackingCode       = "tracking_code"
	ColTrackingStatus     = "tracking_status"
	ColPurchasedBy        = "purchased_by"
	ColPurchasedDate      = "purchased_date"
	ColDeliveredAt        = "delivered_at"
	ColMKTOpsProof        = "mktops_proof"
	ColIsBO               = "is_bo"
	ColKAMProof           = "kam_proof"
	ColKAMProofBy         = "kam_proof_by"
	ColGiftFeedback       = "gift_feedback"
	ColAuditedBy          = "audited_by"
	ColAuditRemark        = "audit_remark"
	ColAuditDate          = "audit_date"
)

// Assignment is one "column = value" pair of a mutation. A nil Value writes NULL.
type Assignment struct {
	Column string
	Value  interface{}
}

// Snapshot is the locked current state of the record a transition acts on.
type Snapshot struct {
	Status         Status
	TrackingStatus string
	IsBO           *bool
}

// Payload carries the action-specific caller input.
type Payload struct {
	RejectionReason string `json:"rejectionReason,omitempty"`
	Dispatcher      string `json:"dispatcher,omitempty"`
	TrackingCode    string `json:"trackingCode,omitempty"`
	TrackingStatus  string `json:"trackingStatus,omitempty"`
	MKTOpsProof     string `json:"mktopsProof,omitempty"`
	KAMProof        string `json:"kamProof,omitempty"`
	Feedback        string `json:"feedback,omitempty"`
	AuditRemark     string `json:"auditRemark,omitempty"`
}

// Normalize trims every free-text field.
func (p Payload) Normalize() Payload {
	return Payload{
		RejectionReason: strings.TrimSpace(p.RejectionReason),
		Dispatcher:      strings.TrimSpace(p.Dispatcher),
		TrackingCode:    strings.TrimSpace(p.TrackingCode),
		TrackingStatus:  strings.TrimSpace(p.TrackingStatus),
		MKTOpsProof:     strings.TrimSpace(p.MKTOpsProof),
		KAMProof:        strings.TrimSpace(p.KAMProof),
		Feedback:        strings.TrimSpace(p.Feedback),
		AuditRemark:     strings.TrimSpace(p.AuditRemark),
	}
}

// EffectInput is everything a mutation builder may consult.
type EffectInput struct {
	ActorID string
	Now     time.Time
	Payload Payload
	Current Snapshot
}

// PreconditionKind selects the data-completeness rule a transition needs.
type PreconditionKind int

const (
	PreconditionNone PreconditionKind = iota
	// PreconditionDeliveryComplete requires dispatcher, tracking code and a Delivered tracking status.
	PreconditionDeliveryComplete
	// PreconditionNotInDelivery forbids rejecting once the item entered the delivery pipeline.
	PreconditionNotInDelivery
)

// PayloadField names a caller-supplied field a transition requires.
type PayloadField string

const (
	FieldRejectionReason PayloadField = "Rejection Reason"
	FieldFeedback        PayloadField = "Feedback"
	FieldAuditRemark     PayloadField = "Audit Remark"
)

// TransitionSpec declares everything the gate, the validator and the executor
// need to know about one (tab, action) pair.
type TransitionSpec struct {
	Tab          Tab
	Action       Action
	AllowedFrom  []Status
	Roles        []Role
	Precondition PreconditionKind
	// Target is empty for actions that keep the current status.
	Target   Status
	Requires []PayloadField
	Effects  func(in EffectInput) []Assignment
}

// ChangesStatus reports whether a successful run moves the record.
func (s TransitionSpec) ChangesStatus() bool {
	return s.Target != ""
}

// Allows reports whether current is a legal source status.
func (s TransitionSpec) Allows(current Status) bool {
	for _, st := range s.AllowedFrom {
		if st == current {
			return true
		}
	}
	return false
}

// Assignments returns the full column set of the mutation, status included.
func (s TransitionSpec) Assignments(in EffectInput) []Assignment {
	var out []Assignment
	if s.Effects != nil {
		out = s.Effects(in)
	}
	if s.ChangesStatus() {
		out = append(out, Assignment{Column: ColWorkflowStatus, Value: string(s.Target)})
	}
	return out
}

type transitionKey struct {
	tab    Tab
	action Action
}

// TabRoles is the role allow-list of each tab. ADMIN passes every tab implicitly.
var TabRoles = map[Tab][]Role{
	TabPending:    {RoleManager, RoleAdmin},
	TabProcessing: {RoleMKTOps, RoleManager, RoleAdmin},
	TabKAMProof:   {RoleKAM, RoleAdmin},
	TabAudit:      {RoleAudit, RoleAdmin},
}

var registry = buildRegistry()

func buildRegistry() map[transitionKey]TransitionSpec {
	specs := []TransitionSpec{
		{
			Tab: TabPending, Action: ActionApprove,
			AllowedFrom: []Status{StatusKAMRequest, StatusManagerReview},
			Target:      StatusMKTOpsProcessing,
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{{ColApprovalReviewedBy, in.ActorID}}
			},
		},
		{
			Tab: TabPending, Action: ActionReject,
			AllowedFrom: []Status{StatusKAMRequest, StatusManagerReview},
			Target:      StatusRejected,
			Requires:    []PayloadField{FieldRejectionReason},
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColApprovalReviewedBy, in.ActorID},
					{ColRejectedBy, in.ActorID},
					{ColRejectionReason, in.Payload.RejectionReason},
				}
			},
		},
		{
			Tab: TabProcessing, Action: ActionUpdate,
			AllowedFrom: []Status{StatusManagerReview},
			Target:      StatusMKTOpsProcessing,
			Effects: func(in EffectInput) []Assignment {
				out := fulfillmentAssignments(in)
				return append(out,
					Assignment{ColPurchasedBy, in.ActorID},
					Assignment{ColPurchasedDate, in.Now},
				)
			},
		},
		{
			Tab: TabProcessing, Action: ActionUpdateMKTOps,
			AllowedFrom: []Status{StatusMKTOpsProcessing},
			Effects:     fulfillmentAssignments,
		},
		{
			Tab: TabProcessing, Action: ActionReject,
			AllowedFrom:  []Status{StatusMKTOpsProcessing},
			Precondition: PreconditionNotInDelivery,
			Target:       StatusRejected,
			Requires:     []PayloadField{FieldRejectionReason},
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColRejectedBy, in.ActorID},
					{ColRejectionReason, in.Payload.RejectionReason},
				}
			},
		},
		{
			Tab: TabProcessing, Action: ActionToggleBO,
			AllowedFrom: []Status{StatusMKTOpsProcessing},
			Effects: func(in EffectInput) []Assignment {
				current := in.Current.IsBO != nil && *in.Current.IsBO
				return []Assignment{{ColIsBO, !current}}
			},
		},
		{
			Tab: TabProcessing, Action: ActionProceed,
			AllowedFrom:  []Status{StatusMKTOpsProcessing},
			Precondition: PreconditionDeliveryComplete,
			Target:       StatusKAMProof,
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{{ColPurchasedBy, in.ActorID}}
			},
		},
		{
			Tab: TabKAMProof, Action: ActionSubmit,
			AllowedFrom: []Status{StatusKAMProof},
			Target:      StatusSalesOpsAudit,
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColKAMProof, nullable(in.Payload.KAMProof)},
					{ColGiftFeedback, nullable(in.Payload.Feedback)},
					{ColKAMProofBy, in.ActorID},
				}
			},
		},
		{
			Tab: TabKAMProof, Action: ActionRevertToMKTOps,
			AllowedFrom: []Status{StatusKAMProof},
			Target:      StatusMKTOpsProcessing,
			Requires:    []PayloadField{FieldFeedback},
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColKAMProof, nil},
					{ColKAMProofBy, nil},
					{ColGiftFeedback, in.Payload.Feedback},
				}
			},
		},
		{
			Tab: TabKAMProof, Action: ActionSaveFeedback,
			AllowedFrom: []Status{StatusKAMProof},
			Effects: func(in EffectInput) []Assignment {
				out := []Assignment{
					{ColGiftFeedback, nullable(in.Payload.Feedback)},
					{ColKAMProofBy, in.ActorID},
				}
				if in.Payload.KAMProof != "" {
					out = append(out, Assignment{ColKAMProof, in.Payload.KAMProof})
				}
				return out
			},
		},
		{
			Tab: TabAudit, Action: ActionComplete,
			AllowedFrom: []Status{StatusSalesOpsAudit},
			Target:      StatusCompleted,
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColAuditedBy, in.ActorID},
					{ColAuditRemark, nullable(in.Payload.AuditRemark)},
					{ColAuditDate, in.Now},
				}
			},
		},
		{
			Tab: TabAudit, Action: ActionMarkIssue,
			AllowedFrom: []Status{StatusSalesOpsAudit},
			Target:      StatusKAMProof,
			Requires:    []PayloadField{FieldAuditRemark},
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColAuditedBy, in.ActorID},
					{ColAuditRemark, in.Payload.AuditRemark},
					{ColAuditDate, in.Now},
				}
			},
		},
		{
			Tab: TabAudit, Action: ActionSaveRemark,
			AllowedFrom: []Status{StatusSalesOpsAudit},
			Effects: func(in EffectInput) []Assignment {
				return []Assignment{
					{ColAuditedBy, in.ActorID},
					{ColAuditRemark, nullable(in.Payload.AuditRemark)},
				}
			},
		},
	}

	out := make(map[transitionKey]TransitionSpec, len(specs))
	for _, spec := range specs {
		spec.Roles = TabRoles[spec.Tab]
		out[transitionKey{spec.Tab, spec.Action}] = spec
	}
	return out
}

// fulfillmentAssignments writes the fulfillment columns and derives
// delivered_at from the tracking status change: entering Delivered stamps it,
// leaving Delivered clears it, anything else leaves it untouched.
func fulfillmentAssignments(in EffectInput) []Assignment {
	out := []Assignment{
		{ColDispatcher, nullable(in.Payload.Dispatcher)},
		{ColTrackingCode, nullable(in.Payload.TrackingCode)},
		{ColTrackingStatus, nullable(in.Payload.TrackingStatus)},
	}
	if in.Payload.MKTOpsProof != "" {
		out = append(out, Assignment{ColMKTOpsProof, in.Payload.MKTOpsProof})
	}
	prev := in.Current.TrackingStatus
	next := in.Payload.TrackingStatus
	switch {
	case next == TrackingDelivered && prev != TrackingDelivered:
		out = append(out, Assignment{ColDeliveredAt, in.Now})
	case prev == TrackingDelivered && next != TrackingDelivered:
		out = append(out, Assignment{ColDeliveredAt, nil})
	}
	return out
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// Lookup returns the spec registered for (tab, action).
func Lookup(tab Tab, action Action) (TransitionSpec, bool) {
	spec, ok := registry[transitionKey{tab, action}]
	return spec, ok
}

// Specs returns every registered transition sorted by tab then action.
func Specs() []TransitionSpec {
	out := make([]TransitionSpec, 0, len(registry))
	for _, spec := range registry {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tab != out[j].Tab {
			return out[i].Tab < out[j].Tab
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// KnownTab reports whether tab scopes any single-record transition.
func KnownTab(tab Tab) bool {
	_, ok := TabRoles[tab]
	return ok
}
