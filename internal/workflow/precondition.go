package workflow

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

// DeliveryState is the data the delivery preconditions read.
type DeliveryState struct {
	Dispatcher     string
	TrackingCode   string
	TrackingStatus string
}

// blockedRejectTracking lists tracking states in which rejection is no longer possible.
var blockedRejectTracking = []string{TrackingPending, TrackingInTransit, TrackingDelivered}

// EvaluatePrecondition applies kind to state, reporting every unmet field at once.
func EvaluatePrecondition(kind PreconditionKind, state DeliveryState) error {
	switch kind {
	case PreconditionDeliveryComplete:
		var missing []string
		if strings.TrimSpace(state.Dispatcher) == "" {
			missing = append(missing, "Dispatcher is required")
		}
		if strings.TrimSpace(state.TrackingCode) == "" {
			missing = append(missing, "Tracking Code is required")
		}
		if state.TrackingStatus != TrackingDelivered {
			missing = append(missing, "Tracking Status must be Delivered")
		}
		if len(missing) > 0 {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrPreconditionFailed, strings.Join(missing, "; ")),
				map[string]interface{}{"missingFields": missing},
			)
		}
	case PreconditionNotInDelivery:
		for _, blocked := range blockedRejectTracking {
			if state.TrackingStatus == blocked {
				msg := fmt.Sprintf("cannot reject: tracking status is already %s", state.TrackingStatus)
				return appErrors.WithDetails(
					appErrors.Clone(appErrors.ErrPreconditionFailed, msg),
					map[string]interface{}{"missingFields": []string{msg}, "trackingStatus": state.TrackingStatus},
				)
			}
		}
	}
	return nil
}
