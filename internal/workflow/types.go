// Package workflow holds the gift approval state machine: the transition
// registry, the permission gate, and the pure checks that run before any write.
package workflow

import "strings"

// Status is the persisted workflow position of a gift request. The tokens are
// shared with reporting and must not change.
type Status string

const (
	StatusKAMRequest       Status = "KAM_Request"
	StatusManagerReview    Status = "Manager_Review"
	StatusMKTOpsProcessing Status = "MKTOps_Processing"
	StatusKAMProof         Status = "KAM_Proof"
	StatusSalesOpsAudit    Status = "SalesOps_Audit"
	StatusCompleted        Status = "Completed"
	StatusRejected         Status = "Rejected"
)

// AllStatuses lists every workflow status in pipeline order.
var AllStatuses = []Status{
	StatusKAMRequest,
	StatusManagerReview,
	StatusMKTOpsProcessing,
	StatusKAMProof,
	StatusSalesOpsAudit,
	StatusCompleted,
	StatusRejected,
}

// Valid reports whether s is a known status token.
func (s Status) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Tab is the stage-specific caller context.
type Tab string

const (
	TabPending    Tab = "pending"
	TabProcessing Tab = "processing"
	TabKAMProof   Tab = "kam-proof"
	TabAudit      Tab = "audit"
	// TabImport only scopes bulk creation and its rollback.
	TabImport Tab = "import"
)

// Action is a caller-facing operation within a tab.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionUpdate         Action = "update"
	ActionUpdateMKTOps   Action = "update-mktops"
	ActionToggleBO       Action = "toggle-bo"
	ActionProceed        Action = "proceed"
	ActionSubmit         Action = "submit"
	ActionRevertToMKTOps Action = "revert-to-mktops"
	ActionSaveFeedback   Action = "save-feedback"
	ActionComplete       Action = "complete"
	ActionMarkIssue      Action = "mark-issue"
	ActionSaveRemark     Action = "save-remark"
)

// Role is the staff role asserted by the identity provider.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMKTOps  Role = "MKTOPS"
	RoleKAM     Role = "KAM"
	RoleAudit   Role = "AUDIT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMKTOps, RoleKAM, RoleAudit:
		return true
	}
	return false
}

// Capability is a module-scoped permission token.
type Capability string

const (
	CapView   Capability = "VIEW"
	CapEdit   Capability = "EDIT"
	CapAdd    Capability = "ADD"
	CapImport Capability = "IMPORT"
)

// Permissions maps a module name to the capability tokens held on it.
type Permissions map[string][]string

// Has reports whether the capability is granted on module. Matching ignores case.
func (p Permissions) Has(module string, capability Capability) bool {
	for name, caps := range p {
		if !strings.EqualFold(name, module) {
			continue
		}
		for _, c := range caps {
			if strings.EqualFold(strings.TrimSpace(c), string(capability)) {
				return true
			}
		}
	}
	return false
}

// Actor is the identity input every entry point requires.
type Actor struct {
	ID          string      `json:"id"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// Tracking status values written by fulfillment.
const (
	TrackingPending   = "Pending"
	TrackingInTransit = "In Transit"
	TrackingDelivered = "Delivered"
	TrackingFailed    = "Failed"
	TrackingReturned  = "Returned"
)

// TrackingStatuses lists the accepted tracking status values.
var TrackingStatuses = []string{TrackingPending, TrackingInTransit, TrackingDelivered, TrackingFailed, TrackingReturned}

// ValidTrackingStatus reports whether value is empty or a known tracking status.
func ValidTrackingStatus(value string) bool {
	if value == "" {
		return true
	}
	for _, s := range TrackingStatuses {
		if s == value {
			return true
		}
	}
	return false
}
