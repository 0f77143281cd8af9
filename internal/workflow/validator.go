package workflow

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

// ValidateTransition checks (tab, action) against the registry and the record's
// current status. It must run before any mutation.
func ValidateTransition(tab Tab, action Action, current Status) (TransitionSpec, error) {
	spec, ok := Lookup(tab, action)
	if !ok {
		return TransitionSpec{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrIllegalTransition, fmt.Sprintf("action %q is not available on tab %q", action, tab)),
			map[string]interface{}{
				"tab":             tab,
				"action":          action,
				"currentStatus":   current,
				"allowedStatuses": []Status{},
			},
		)
	}
	if !spec.Allows(current) {
		return spec, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrIllegalTransition,
				fmt.Sprintf("cannot %s a request in status %s (allowed from: %s)", action, current, joinStatuses(spec.AllowedFrom))),
			map[string]interface{}{
				"tab":             tab,
				"action":          action,
				"currentStatus":   current,
				"allowedStatuses": spec.AllowedFrom,
			},
		)
	}
	return spec, nil
}

// ValidatePayload enforces the caller fields a transition requires. It touches
// no state and may run before the record is read.
func ValidatePayload(spec TransitionSpec, payload Payload) error {
	missing := make([]string, 0, len(spec.Requires))
	for _, field := range spec.Requires {
		var value string
		switch field {
		case FieldRejectionReason:
			value = payload.RejectionReason
		case FieldFeedback:
			value = payload.Feedback
		case FieldAuditRemark:
			value = payload.AuditRemark
		}
		if value == "" {
			missing = append(missing, string(field)+" is required")
		}
	}
	if !ValidTrackingStatus(payload.TrackingStatus) {
		missing = append(missing, fmt.Sprintf("Tracking Status %q is not one of: %s", payload.TrackingStatus, strings.Join(TrackingStatuses, ", ")))
	}
	if len(missing) == 0 {
		return nil
	}
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrValidation, strings.Join(missing, "; ")),
		map[string]interface{}{"fields": missing},
	)
}

func joinStatuses(statuses []Status) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
