package workflow

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

// KAMProofDecision is the closed set of bulk kam-proof outcomes.
type KAMProofDecision int

const (
	KAMProofNoDecision KAMProofDecision = iota
	KAMProofProceed
	KAMProofRevert
)

// AuditDecision is the closed set of bulk audit outcomes.
type AuditDecision int

const (
	AuditNoDecision AuditDecision = iota
	AuditCompleted
	AuditIssue
)

// ParseKAMProofDecision maps the sheet token; blank means no decision.
func ParseKAMProofDecision(raw string) (KAMProofDecision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return KAMProofNoDecision, nil
	case "proceed":
		return KAMProofProceed, nil
	case "revert":
		return KAMProofRevert, nil
	}
	return KAMProofNoDecision, appErrors.Clone(appErrors.ErrValidation,
		fmt.Sprintf("decision %q is not one of: proceed, revert, or blank", raw))
}

// ParseAuditDecision maps the sheet token; blank means no decision.
func ParseAuditDecision(raw string) (AuditDecision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return AuditNoDecision, nil
	case "completed":
		return AuditCompleted, nil
	case "issue":
		return AuditIssue, nil
	}
	return AuditNoDecision, appErrors.Clone(appErrors.ErrValidation,
		fmt.Sprintf("decision %q is not one of: completed, issue, or blank", raw))
}

// Action returns the registry action the decision selects.
func (d KAMProofDecision) Action() Action {
	switch d {
	case KAMProofProceed:
		return ActionSubmit
	case KAMProofRevert:
		return ActionRevertToMKTOps
	default:
		return ActionSaveFeedback
	}
}

// Action returns the registry action the decision selects.
func (d AuditDecision) Action() Action {
	switch d {
	case AuditCompleted:
		return ActionComplete
	case AuditIssue:
		return ActionMarkIssue
	default:
		return ActionSaveRemark
	}
}

// ResolveBulkAction picks the registry action for one bulk update row. Processing
// rows choose by current status: first fulfillment from Manager_Review, edits
// afterwards.
func ResolveBulkAction(tab Tab, decision string, current Status) (Action, error) {
	switch tab {
	case TabProcessing:
		if current == StatusManagerReview {
			return ActionUpdate, nil
		}
		return ActionUpdateMKTOps, nil
	case TabKAMProof:
		d, err := ParseKAMProofDecision(decision)
		if err != nil {
			return "", err
		}
		return d.Action(), nil
	case TabAudit:
		d, err := ParseAuditDecision(decision)
		if err != nil {
			return "", err
		}
		return d.Action(), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bulk update is not supported for tab %q", tab))
}

// BulkUpdateTabs lists tabs that accept bulk updates.
func BulkUpdateTabs() []Tab {
	return []Tab{TabProcessing, TabKAMProof, TabAudit}
}
