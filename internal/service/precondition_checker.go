package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

type deliveryStateReader interface {
	DeliveryState(ctx context.Context, tx sqlx.ExtContext, id int64) (workflow.DeliveryState, error)
}

// PreconditionChecker runs the data-completeness rules of a transition on the
// caller's transaction, after legality was established.
type PreconditionChecker struct {
	reader deliveryStateReader
}

// NewPreconditionChecker constructs the checker.
func NewPreconditionChecker(reader deliveryStateReader) *PreconditionChecker {
	return &PreconditionChecker{reader: reader}
}

// Check reads the fields kind needs and evaluates them. Store failures are
// returned untyped.
func (c *PreconditionChecker) Check(ctx context.Context, tx sqlx.ExtContext, kind workflow.PreconditionKind, giftID int64) error {
	if kind == workflow.PreconditionNone {
		return nil
	}
	state, err := c.reader.DeliveryState(ctx, tx, giftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("gift request %d not found", giftID))
		}
		return fmt.Errorf("read delivery state: %w", err)
	}
	return workflow.EvaluatePrecondition(kind, state)
}
