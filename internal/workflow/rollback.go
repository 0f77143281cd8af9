package workflow

import (
	"fmt"

	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

// RollbackSpec is the field-level inverse of a tab's bulk update.
type RollbackSpec struct {
	Tab     Tab
	ResetTo Status
	// EligibleFrom lists statuses a touched row may hold and still be reversed.
	EligibleFrom []Status
	Clear        []string
}

// Allows reports whether a row in current may be reversed.
func (s RollbackSpec) Allows(current Status) bool {
	for _, st := range s.EligibleFrom {
		if st == current {
			return true
		}
	}
	return false
}

// Assignments returns the reversal mutation: every cleared column NULL plus the reset status.
func (s RollbackSpec) Assignments() []Assignment {
	out := make([]Assignment, 0, len(s.Clear)+1)
	for _, col := range s.Clear {
		out = append(out, Assignment{Column: col, Value: nil})
	}
	return append(out, Assignment{Column: ColWorkflowStatus, Value: string(s.ResetTo)})
}

// Every bulk update tab needs an entry here; tabs without one are rejected.
var rollbacks = map[Tab]RollbackSpec{
	TabProcessing: {
		Tab:          TabProcessing,
		ResetTo:      StatusKAMRequest,
		EligibleFrom: []Status{StatusMKTOpsProcessing},
		Clear: []string{
			ColDispatcher, ColTrackingCode, ColTrackingStatus, ColDeliveredAt,
			ColPurchasedBy, ColPurchasedDate, ColMKTOpsProof,
		},
	},
	TabKAMProof: {
		Tab:          TabKAMProof,
		ResetTo:      StatusMKTOpsProcessing,
		EligibleFrom: []Status{StatusKAMProof, StatusSalesOpsAudit, StatusMKTOpsProcessing},
		Clear:        []string{ColKAMProof, ColKAMProofBy, ColGiftFeedback},
	},
	TabAudit: {
		Tab:          TabAudit,
		ResetTo:      StatusKAMProof,
		EligibleFrom: []Status{StatusSalesOpsAudit, StatusCompleted, StatusKAMProof},
		Clear:        []string{ColAuditedBy, ColAuditRemark, ColAuditDate},
	},
}

// LookupRollback returns the reversal declared for tab.
func LookupRollback(tab Tab) (RollbackSpec, error) {
	spec, ok := rollbacks[tab]
	if !ok {
		return RollbackSpec{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rollback is not supported for tab %q", tab)),
			map[string]interface{}{"tab": tab},
		)
	}
	return spec, nil
}
