package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gift-approval-api/internal/dto"
	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/repository"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

type txRunner interface {
	RunInTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error
}

type giftStore interface {
	GetByID(ctx context.Context, id int64) (*models.GiftRequest, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.GiftRequest, error)
	LockIdentity(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.GiftIdentity, error)
	ApplyAssignments(ctx context.Context, tx sqlx.ExtContext, id int64, expected workflow.Status, assignments []workflow.Assignment, now time.Time) error
	Insert(ctx context.Context, tx sqlx.ExtContext, gift *models.GiftRequest) error
	AdvanceBatch(ctx context.Context, tx sqlx.ExtContext, batchID int64, from, to workflow.Status, now time.Time) (int64, error)
	List(ctx context.Context, filter models.GiftRequestFilter) ([]models.GiftRequest, error)
	ListByBatch(ctx context.Context, batchID int64) ([]models.GiftRequest, error)
}

type timelineStore interface {
	Append(ctx context.Context, entry models.TimelineEntry) error
	AppendMany(ctx context.Context, q sqlx.ExecerContext, entries []models.TimelineEntry) error
	ListByGift(ctx context.Context, giftID int64) ([]models.TimelineEntry, error)
}

type memberResolver interface {
	Lookup(ctx context.Context, login string) (*models.Member, error)
}

type preconditionRunner interface {
	Check(ctx context.Context, tx sqlx.ExtContext, kind workflow.PreconditionKind, giftID int64) error
}

type giftNotifier interface {
	Notify(ctx context.Context, n GiftNotification)
}

type workflowMetrics interface {
	ObserveTransition(tab, action, outcome string)
	ObserveBulkRows(operation, tab, outcome string, n int)
}

// WorkflowOption customises the workflow services.
type WorkflowOption func(*workflowDeps)

type workflowDeps struct {
	notifier giftNotifier
	metrics  workflowMetrics
	logger   *zap.Logger
	now      func() time.Time
	validate *validator.Validate
}

// WithNotifier sets the post-commit notification dispatcher.
func WithNotifier(n giftNotifier) WorkflowOption {
	return func(d *workflowDeps) { d.notifier = n }
}

// WithWorkflowMetrics sets the outcome recorder.
func WithWorkflowMetrics(m workflowMetrics) WorkflowOption {
	return func(d *workflowDeps) { d.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) WorkflowOption {
	return func(d *workflowDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) WorkflowOption {
	return func(d *workflowDeps) {
		if now != nil {
			d.now = now
		}
	}
}

func buildDeps(opts []WorkflowOption) workflowDeps {
	deps := workflowDeps{
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return deps
}

func (d workflowDeps) notify(ctx context.Context, n GiftNotification) {
	if d.notifier != nil {
		d.notifier.Notify(ctx, n)
	}
}

func (d workflowDeps) observeTransition(tab workflow.Tab, action workflow.Action, err error) {
	if d.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = appErrors.KindOf(err)
	}
	d.metrics.ObserveTransition(string(tab), string(action), outcome)
}

// GiftWorkflowService executes single-record operations on gift requests.
type GiftWorkflowService struct {
	tx       txRunner
	gifts    giftStore
	timeline timelineStore
	members  memberResolver
	checker  preconditionRunner
	gate     workflow.Gate
	deps     workflowDeps
}

// NewGiftWorkflowService constructs the executor.
func NewGiftWorkflowService(tx txRunner, gifts giftStore, timeline timelineStore, members memberResolver, checker preconditionRunner, gate workflow.Gate, opts ...WorkflowOption) *GiftWorkflowService {
	return &GiftWorkflowService{
		tx:       tx,
		gifts:    gifts,
		timeline: timeline,
		members:  members,
		checker:  checker,
		gate:     gate,
		deps:     buildDeps(opts),
	}
}

// Create inserts an individual request at KAM_Request with its creation entry.
func (s *GiftWorkflowService) Create(ctx context.Context, actor *workflow.Actor, req dto.CreateGiftRequest) (*models.GiftRequest, error) {
	if err := s.gate.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	req = normalizeGiftFields(req)
	if err := s.deps.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	member, err := s.members.Lookup(ctx, req.MemberLogin)
	if err != nil {
		return nil, memberError(err)
	}

	now := s.deps.now()
	gift := newGiftRequest(req, member, actor.ID, nil, now)
	err = s.tx.RunInTx(ctx, func(tx sqlx.ExtContext) error {
		if err := s.gifts.Insert(ctx, tx, gift); err != nil {
			return err
		}
		return s.timeline.AppendMany(ctx, tx, []models.TimelineEntry{creationEntry(gift.ID, actor.ID, now)})
	})
	if err != nil {
		return nil, transactionError(err, "failed to create gift request")
	}
	s.deps.logger.Info("gift request created", zap.Int64("gift_id", gift.ID), zap.String("actor_id", actor.ID))
	return gift, nil
}

// Transition runs gate, lock-read, validator, precondition and one guarded
// UPDATE in a single transaction. The timeline entry is written after commit;
// its failure is reported as a warning and does not undo the transition.
func (s *GiftWorkflowService) Transition(ctx context.Context, actor *workflow.Actor, id int64, req dto.TransitionRequest) (result *dto.TransitionResult, err error) {
	tab := workflow.Tab(strings.TrimSpace(req.Tab))
	action := workflow.Action(strings.TrimSpace(req.Action))
	defer func() { s.deps.observeTransition(tab, action, err) }()

	if err := s.gate.AuthorizeTransition(actor, tab, action); err != nil {
		return nil, err
	}
	payload := req.Payload.Normalize()
	if spec, ok := workflow.Lookup(tab, action); ok {
		if err := workflow.ValidatePayload(spec, payload); err != nil {
			return nil, err
		}
	}

	now := s.deps.now()
	var spec workflow.TransitionSpec
	var previous workflow.Status
	err = s.tx.RunInTx(ctx, func(tx sqlx.ExtContext) error {
		gift, err := s.gifts.LockByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return giftNotFound(id)
			}
			return err
		}
		previous = gift.WorkflowStatus

		spec, err = workflow.ValidateTransition(tab, action, gift.WorkflowStatus)
		if err != nil {
			return err
		}
		if err := s.checker.Check(ctx, tx, spec.Precondition, id); err != nil {
			return err
		}

		assignments := spec.Assignments(workflow.EffectInput{
			ActorID: actor.ID,
			Now:     now,
			Payload: payload,
			Current: gift.Snapshot(),
		})
		if err := s.gifts.ApplyAssignments(ctx, tx, id, gift.WorkflowStatus, assignments, now); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("gift request %d changed status concurrently", id))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, transactionError(err, "failed to apply transition")
	}

	result = &dto.TransitionResult{GiftID: id, Tab: tab, Action: action, PreviousStatus: previous}
	if !spec.ChangesStatus() {
		return result, nil
	}
	result.NewStatus = spec.Target

	entry := transitionEntry(id, previous, spec.Target, actor.ID, timelineRemark(action, payload), now)
	if err := s.timeline.Append(ctx, entry); err != nil {
		s.deps.logger.Error("timeline append failed after commit",
			zap.Int64("gift_id", id),
			zap.String("from_status", string(previous)),
			zap.String("to_status", string(spec.Target)),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, "status changed but the timeline entry could not be recorded")
	}
	s.deps.notify(ctx, GiftNotification{
		GiftID: id, Tab: tab, Action: action, FromStatus: previous, ToStatus: spec.Target, ActorID: actor.ID, OccurredAt: now,
	})
	return result, nil
}

// Get returns one visible request.
func (s *GiftWorkflowService) Get(ctx context.Context, actor *workflow.Actor, id int64) (*models.GiftRequest, error) {
	if err := s.gate.AuthorizeRead(actor); err != nil {
		return nil, err
	}
	gift, err := s.gifts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, giftNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gift request")
	}
	return gift, nil
}

// List returns visible requests matching the query.
func (s *GiftWorkflowService) List(ctx context.Context, actor *workflow.Actor, query dto.GiftListQuery) ([]models.GiftRequest, error) {
	if err := s.gate.AuthorizeRead(actor); err != nil {
		return nil, err
	}
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown workflow status %q", status))
		}
	}
	gifts, err := s.gifts.List(ctx, models.GiftRequestFilter{
		Status:      query.Status,
		BatchID:     query.BatchID,
		MemberLogin: strings.TrimSpace(query.MemberLogin),
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list gift requests")
	}
	return gifts, nil
}

// Timeline returns the status history of a visible request.
func (s *GiftWorkflowService) Timeline(ctx context.Context, actor *workflow.Actor, id int64) ([]models.TimelineEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.timeline.ListByGift(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeline")
	}
	return entries, nil
}

func giftNotFound(id int64) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("gift request %d not found", id)),
		map[string]interface{}{"giftId": id},
	)
}

// memberError reports an unresolved member as a caller mistake.
func memberError(err error) error {
	if appErrors.KindOf(err) == appErrors.CodeNotFound {
		appErr := appErrors.FromError(err)
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, appErr.Message), appErr.Details)
	}
	return err
}

func normalizeGiftFields(req dto.CreateGiftRequest) dto.CreateGiftRequest {
	req.MemberLogin = strings.TrimSpace(req.MemberLogin)
	req.GiftItem = strings.TrimSpace(req.GiftItem)
	req.Category = strings.TrimSpace(req.Category)
	req.RewardName = strings.TrimSpace(req.RewardName)
	req.Remark = strings.TrimSpace(req.Remark)
	return req
}

func newGiftRequest(req dto.CreateGiftRequest, member *models.Member, actorID string, batchID *int64, now time.Time) *models.GiftRequest {
	return &models.GiftRequest{
		BatchID:        batchID,
		MemberID:       member.ID,
		MemberLogin:    member.Login,
		MerchantName:   member.MerchantName,
		Currency:       member.Currency,
		VIPLevel:       member.VIPLevel,
		GiftItem:       req.GiftItem,
		Category:       req.Category,
		RewardName:     optionalString(req.RewardName),
		CostMYR:        req.CostMYR,
		CostVND:        req.CostVND,
		Remark:         optionalString(req.Remark),
		KAMRequestedBy: actorID,
		WorkflowStatus: workflow.StatusKAMRequest,
		CreatedAt:      now,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func creationEntry(giftID int64, actorID string, at time.Time) models.TimelineEntry {
	return models.TimelineEntry{GiftID: giftID, ToStatus: string(workflow.StatusKAMRequest), ChangedBy: actorID, ChangedAt: at}
}

func transitionEntry(giftID int64, from, to workflow.Status, actorID, remark string, at time.Time) models.TimelineEntry {
	fromStatus := string(from)
	return models.TimelineEntry{
		GiftID:     giftID,
		FromStatus: &fromStatus,
		ToStatus:   string(to),
		ChangedBy:  actorID,
		Remark:     optionalString(remark),
		ChangedAt:  at,
	}
}

// timelineRemark picks the caller text worth keeping on the entry.
func timelineRemark(action workflow.Action, payload workflow.Payload) string {
	switch action {
	case workflow.ActionReject:
		return payload.RejectionReason
	case workflow.ActionRevertToMKTOps:
		return payload.Feedback
	case workflow.ActionMarkIssue, workflow.ActionComplete:
		return payload.AuditRemark
	}
	return ""
}
