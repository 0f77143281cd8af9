package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gift-approval-api/internal/dto"
	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/repository"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

const (
	importSavepoint   = "import_row"
	updateSavepoint   = "bulk_row"
	rollbackSavepoint = "rollback_row"
)

type batchStore interface {
	Create(ctx context.Context, tx sqlx.ExtContext, batch *models.GiftBatch) error
	Finalize(ctx context.Context, tx sqlx.ExtContext, id int64, success, failed int, now time.Time) error
	RecordFailure(ctx context.Context, batch models.GiftBatch, reason string) error
	AddItems(ctx context.Context, tx sqlx.ExtContext, batchID int64, giftIDs []int64) error
	ItemIDs(ctx context.Context, tx sqlx.ExtContext, batchID int64) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*models.GiftBatch, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.GiftBatch, error)
	LockByTransactionRef(ctx context.Context, tx sqlx.ExtContext, ref string) (*models.GiftBatch, error)
	MarkRolledBack(ctx context.Context, tx sqlx.ExtContext, id int64, rows int, reason, actorID string, now time.Time) error
	List(ctx context.Context, filter models.GiftBatchFilter) ([]models.GiftBatch, error)
}

type rollbackLogStore interface {
	Insert(ctx context.Context, tx sqlx.ExtContext, log *models.RollbackLog) error
	ListByBatch(ctx context.Context, batchID int64) ([]models.RollbackLog, error)
}

type batchReporter interface {
	Render(batch models.GiftBatch, gifts []models.GiftRequest, format string) ([]byte, string, error)
}

// GiftBatchConfig bounds bulk inputs. MaxRows 0 disables the cap.
type GiftBatchConfig struct {
	MaxRows int
}

// GiftBatchService executes bulk import, bulk update and compensating rollback.
// Each call owns exactly one transaction.
type GiftBatchService struct {
	tx        txRunner
	gifts     giftStore
	batches   batchStore
	timeline  timelineStore
	rollbacks rollbackLogStore
	members   memberResolver
	checker   preconditionRunner
	reporter  batchReporter
	gate      workflow.Gate
	cfg       GiftBatchConfig
	deps      workflowDeps
}

// GiftBatchStores groups the persistence collaborators of the batch executor.
type GiftBatchStores struct {
	Tx        txRunner
	Gifts     giftStore
	Batches   batchStore
	Timeline  timelineStore
	Rollbacks rollbackLogStore
}

// NewGiftBatchService constructs the batch executor.
func NewGiftBatchService(stores GiftBatchStores, members memberResolver, checker preconditionRunner, reporter batchReporter, gate workflow.Gate, cfg GiftBatchConfig, opts ...WorkflowOption) *GiftBatchService {
	return &GiftBatchService{
		tx:        stores.Tx,
		gifts:     stores.Gifts,
		batches:   stores.Batches,
		timeline:  stores.Timeline,
		rollbacks: stores.Rollbacks,
		members:   members,
		checker:   checker,
		reporter:  reporter,
		gate:      gate,
		cfg:       cfg,
		deps:      buildDeps(opts),
	}
}

func (s *GiftBatchService) checkRowCount(n int) error {
	if n == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one row is required")
	}
	if s.cfg.MaxRows > 0 && n > s.cfg.MaxRows {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%d rows exceed the limit of %d per batch", n, s.cfg.MaxRows)),
			map[string]interface{}{"rows": n, "maxRows": s.cfg.MaxRows},
		)
	}
	return nil
}

func rowFailure(row int, giftID int64, err error) dto.RowFailure {
	return dto.RowFailure{Row: row, GiftID: giftID, Kind: appErrors.KindOf(err), Reason: appErrors.FromError(err).Message}
}

// recordFailure marks the batch FAILED on a fresh connection after its
// transaction rolled back.
func (s *GiftBatchService) recordFailure(ctx context.Context, batch models.GiftBatch, cause error) {
	if err := s.batches.RecordFailure(context.WithoutCancel(ctx), batch, cause.Error()); err != nil {
		s.deps.logger.Error("failed to mark gift batch as failed",
			zap.String("transaction_ref", batch.TransactionRef),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	}
}

// Import creates every valid row at KAM_Request under one batch, advances the
// created rows to Manager_Review and commits once. Invalid rows are reported
// without aborting the batch.
func (s *GiftBatchService) Import(ctx context.Context, actor *workflow.Actor, req dto.ImportRequest) (*dto.ImportResult, error) {
	if err := s.gate.AuthorizeImport(actor); err != nil {
		return nil, err
	}
	if err := s.checkRowCount(len(req.Rows)); err != nil {
		return nil, err
	}

	now := s.deps.now()
	batch := models.GiftBatch{
		Name:           strings.TrimSpace(req.BatchName),
		Type:           models.BatchTypeImport,
		Tab:            string(workflow.TabImport),
		TransactionRef: uuid.NewString(),
		TotalRows:      len(req.Rows),
		CreatedBy:      actor.ID,
		CreatedAt:      now,
	}
	if batch.Name == "" {
		batch.Name = fmt.Sprintf("import-%s-%s", actor.ID, now.Format("20060102-150405"))
	}

	result := &dto.ImportResult{TransactionRef: batch.TransactionRef, BatchName: batch.Name, TotalRows: len(req.Rows)}
	err := s.tx.RunInTx(ctx, func(tx sqlx.ExtContext) error {
		result.GiftIDs = nil
		result.FailedRows = nil
		if err := s.batches.Create(ctx, tx, &batch); err != nil {
			return err
		}

		for i, raw := range req.Rows {
			row := normalizeGiftFields(raw)
			if err := s.deps.validate.Struct(row); err != nil {
				result.FailedRows = append(result.FailedRows, rowFailure(i+1, 0, validationError(err)))
				continue
			}
			member, err := s.members.Lookup(ctx, row.MemberLogin)
			if err != nil {
				if !isTyped(err) || appErrors.KindOf(err) == appErrors.ErrInternal.Code {
					return err
				}
				result.FailedRows = append(result.FailedRows, rowFailure(i+1, 0, memberError(err)))
				continue
			}

			gift := newGiftRequest(row, member, actor.ID, &batch.ID, now)
			rowErr, err := repository.WithSavepoint(ctx, tx, importSavepoint, func() error {
				return s.gifts.Insert(ctx, tx, gift)
			})
			if err != nil {
				return err
			}
			if rowErr != nil {
				s.deps.logger.Warn("import row rejected by store", zap.Int("row", i+1), zap.Error(rowErr))
				result.FailedRows = append(result.FailedRows, dto.RowFailure{
					Row: i + 1, Kind: appErrors.CodeValidation, Reason: "row could not be stored",
				})
				continue
			}
			result.GiftIDs = append(result.GiftIDs, gift.ID)
		}

		if len(result.GiftIDs) > 0 {
			advanced, err := s.gifts.AdvanceBatch(ctx, tx, batch.ID, workflow.StatusKAMRequest, workflow.StatusManagerReview, now)
			if err != nil {
				return err
			}
			if advanced != int64(len(result.GiftIDs)) {
				return fmt.Errorf("advanced %d requests, expected %d", advanced, len(result.GiftIDs))
			}
		}
		if err := s.batches.Finalize(ctx, tx, batch.ID, len(result.GiftIDs), len(result.FailedRows), now); err != nil {
			return err
		}

		entries := make([]models.TimelineEntry, 0, len(result.GiftIDs)*2)
		for _, id := range result.GiftIDs {
			entries = append(entries,
				creationEntry(id, actor.ID, now),
				transitionEntry(id, workflow.StatusKAMRequest, workflow.StatusManagerReview, actor.ID, "bulk import "+batch.Name, now),
			)
		}
		return s.timeline.AppendMany(ctx, tx, entries)
	})
	if err != nil {
		s.recordFailure(ctx, batch, err)
		return nil, transactionError(err, "bulk import failed")
	}

	result.BatchID = batch.ID
	result.ImportedCount = len(result.GiftIDs)
	result.FailedCount = len(result.FailedRows)
	s.observeRows("import", workflow.TabImport, result.ImportedCount, result.FailedCount)
	s.deps.logger.Info("gift batch imported",
		zap.Int64("batch_id", batch.ID),
		zap.String("transaction_ref", batch.TransactionRef),
		zap.Int("imported", result.ImportedCount),
		zap.Int("failed", result.FailedCount),
	)
	for _, id := range result.GiftIDs {
		s.deps.notify(ctx, GiftNotification{
			GiftID: id, Tab: workflow.TabImport, FromStatus: workflow.StatusKAMRequest, ToStatus: workflow.StatusManagerReview,
			ActorID: actor.ID, BatchRef: batch.TransactionRef, OccurredAt: now,
		})
	}
	return result, nil
}

// bulkRowOutcome is the result of one applied bulk update row.
type bulkRowOutcome struct {
	giftID int64
	action workflow.Action
	from   workflow.Status
	to     workflow.Status
}

// BulkUpdate applies one tab's sheet row by row inside a single transaction.
// Every row is independent: failures are collected and the remaining rows still
// apply. The batch commits once after the loop.
func (s *GiftBatchService) BulkUpdate(ctx context.Context, actor *workflow.Actor, req dto.BulkUpdateRequest) (*dto.BulkUpdateResult, error) {
	tab := workflow.Tab(strings.TrimSpace(req.Tab))
	if err := s.gate.AuthorizeBulkUpdate(actor, tab); err != nil {
		return nil, err
	}
	if err := s.checkRowCount(len(req.Rows)); err != nil {
		return nil, err
	}

	now := s.deps.now()
	batch := models.GiftBatch{
		Name:           fmt.Sprintf("update-%s-%s", tab, now.Format("20060102-150405")),
		Type:           models.BatchTypeUpdate,
		Tab:            string(tab),
		TransactionRef: uuid.NewString(),
		TotalRows:      len(req.Rows),
		CreatedBy:      actor.ID,
		CreatedAt:      now,
	}

	result := &dto.BulkUpdateResult{TransactionRef: batch.TransactionRef, Tab: tab, TotalRows: len(req.Rows)}
	var applied []bulkRowOutcome
	err := s.tx.RunInTx(ctx, func(tx sqlx.ExtContext) error {
		applied = nil
		result.FailedRows = nil
		if err := s.batches.Create(ctx, tx, &batch); err != nil {
			return err
		}

		for i, row := range req.Rows {
			outcome, rowErr, err := s.applyBulkRow(ctx, tx, actor, tab, row, now)
			if err != nil {
				return err
			}
			if rowErr != nil {
				result.FailedRows = append(result.FailedRows, rowFailure(i+1, row.GiftID, rowErr))
				continue
			}
			applied = append(applied, outcome)
		}

		// A sheet may repeat an id; the item row is recorded once.
		touched := make([]int64, 0, len(applied))
		seen := make(map[int64]struct{}, len(applied))
		var entries []models.TimelineEntry
		for _, outcome := range applied {
			if _, dup := seen[outcome.giftID]; !dup {
				seen[outcome.giftID] = struct{}{}
				touched = append(touched, outcome.giftID)
			}
			if outcome.to != "" {
				entries = append(entries, transitionEntry(outcome.giftID, outcome.from, outcome.to, actor.ID, "bulk update "+batch.TransactionRef, now))
			}
		}
		if err := s.batches.AddItems(ctx, tx, batch.ID, touched); err != nil {
			return err
		}
		if err := s.batches.Finalize(ctx, tx, batch.ID, len(applied), len(result.FailedRows), now); err != nil {
			return err
		}
		return s.timeline.AppendMany(ctx, tx, entries)
	})
	if err != nil {
		s.recordFailure(ctx, batch, err)
		return nil, transactionError(err, "bulk update failed")
	}

	result.BatchID = batch.ID
	result.UpdatedCount = len(applied)
	result.FailedCount = len(result.FailedRows)
	s.observeRows("update", tab, result.UpdatedCount, result.FailedCount)
	s.deps.logger.Info("gift batch updated",
		zap.Int64("batch_id", batch.ID),
		zap.String("tab", string(tab)),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", result.FailedCount),
	)
	for _, outcome := range applied {
		if outcome.to == "" {
			continue
		}
		s.deps.notify(ctx, GiftNotification{
			GiftID: outcome.giftID, Tab: tab, Action: outcome.action, FromStatus: outcome.from, ToStatus: outcome.to,
			ActorID: actor.ID, BatchRef: batch.TransactionRef, OccurredAt: now,
		})
	}
	return result, nil
}

// applyBulkRow returns a row error for per-row rejections and err for failures
// that must abort the whole batch.
func (s *GiftBatchService) applyBulkRow(ctx context.Context, tx sqlx.ExtContext, actor *workflow.Actor, tab workflow.Tab, row dto.BulkUpdateRow, now time.Time) (bulkRowOutcome, error, error) {
	if err := s.deps.validate.Struct(row); err != nil {
		return bulkRowOutcome{}, validationError(err), nil
	}

	identity, err := s.gifts.LockIdentity(ctx, tx, row.GiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bulkRowOutcome{}, giftNotFound(row.GiftID), nil
		}
		return bulkRowOutcome{}, nil, err
	}
	if err := crossValidate(identity, row); err != nil {
		return bulkRowOutcome{}, err, nil
	}

	action, err := workflow.ResolveBulkAction(tab, row.Decision, identity.WorkflowStatus)
	if err != nil {
		return bulkRowOutcome{}, err, nil
	}
	spec, err := workflow.ValidateTransition(tab, action, identity.WorkflowStatus)
	if err != nil {
		return bulkRowOutcome{}, err, nil
	}
	payload := row.Payload()
	if err := workflow.ValidatePayload(spec, payload); err != nil {
		return bulkRowOutcome{}, err, nil
	}
	if err := s.checker.Check(ctx, tx, spec.Precondition, row.GiftID); err != nil {
		if isTyped(err) {
			return bulkRowOutcome{}, err, nil
		}
		return bulkRowOutcome{}, nil, err
	}

	snapshot := workflow.Snapshot{Status: identity.WorkflowStatus, IsBO: identity.IsBO}
	if identity.TrackingStatus != nil {
		snapshot.TrackingStatus = *identity.TrackingStatus
	}
	assignments := spec.Assignments(workflow.EffectInput{ActorID: actor.ID, Now: now, Payload: payload, Current: snapshot})
	rowErr, err := repository.WithSavepoint(ctx, tx, updateSavepoint, func() error {
		return s.gifts.ApplyAssignments(ctx, tx, row.GiftID, identity.WorkflowStatus, assignments, now)
	})
	if err != nil {
		return bulkRowOutcome{}, nil, err
	}
	if rowErr != nil {
		if errors.Is(rowErr, repository.ErrStaleStatus) {
			return bulkRowOutcome{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("gift request %d changed status concurrently", row.GiftID)), nil
		}
		s.deps.logger.Warn("bulk update row rejected by store", zap.Int64("gift_id", row.GiftID), zap.Error(rowErr))
		return bulkRowOutcome{}, appErrors.Clone(appErrors.ErrValidation, "row could not be stored"), nil
	}

	outcome := bulkRowOutcome{giftID: row.GiftID, action: action, from: identity.WorkflowStatus}
	if spec.ChangesStatus() {
		outcome.to = spec.Target
	}
	return outcome, nil, nil
}

// crossValidate guards against sheets whose rows point at another account.
func crossValidate(identity *models.GiftIdentity, row dto.BulkUpdateRow) error {
	checks := []struct {
		field    string
		expected string
		supplied string
	}{
		{"memberLogin", identity.MemberLogin, row.MemberLogin},
		{"merchantName", identity.MerchantName, row.MerchantName},
		{"currency", identity.Currency, row.Currency},
	}
	for _, check := range checks {
		if !strings.EqualFold(strings.TrimSpace(check.expected), strings.TrimSpace(check.supplied)) {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("%s does not match gift request %d: expected %q, got %q", check.field, identity.GiftID, check.expected, check.supplied)),
				map[string]interface{}{"field": check.field, "expected": check.expected, "supplied": check.supplied},
			)
		}
	}
	return nil
}

// Rollback reverses a completed batch. Import batches are deactivated, which
// hides their requests; update batches have every touched row reset through the
// tab's declared inverse.
func (s *GiftBatchService) Rollback(ctx context.Context, actor *workflow.Actor, req dto.RollbackRequest) (*dto.RollbackResult, error) {
	tab := workflow.Tab(strings.TrimSpace(req.Tab))
	if err := s.gate.AuthorizeRollback(actor, tab); err != nil {
		return nil, err
	}
	var inverse workflow.RollbackSpec
	if tab != workflow.TabImport {
		spec, err := workflow.LookupRollback(tab)
		if err != nil {
			return nil, err
		}
		inverse = spec
	}
	ref := strings.TrimSpace(req.TransactionRef)
	if ref == "" && req.BatchID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "transactionRef or batchId is required")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	now := s.deps.now()
	result := &dto.RollbackResult{Tab: tab}
	var moved []bulkRowOutcome
	err := s.tx.RunInTx(ctx, func(tx sqlx.ExtContext) error {
		moved = nil
		result.FailedRows = nil
		batch, err := s.lockBatch(ctx, tx, ref, req.BatchID)
		if err != nil {
			return err
		}
		if err := checkRollbackTarget(batch, tab); err != nil {
			return err
		}
		result.BatchID = batch.ID
		result.TransactionRef = batch.TransactionRef

		reversed := batch.SuccessRows
		if tab != workflow.TabImport {
			reversed, moved, err = s.reverseRows(ctx, tx, batch, inverse, result)
			if err != nil {
				return err
			}
		}
		result.RolledBackCount = reversed

		if err := s.batches.MarkRolledBack(ctx, tx, batch.ID, reversed, reason, actor.ID, now); err != nil {
			return err
		}
		log := &models.RollbackLog{
			BatchID:        batch.ID,
			TransactionRef: batch.TransactionRef,
			Tab:            batch.Tab,
			ActorID:        actor.ID,
			RolledBackRows: reversed,
			TotalRows:      batch.TotalRows,
			SuccessRows:    batch.SuccessRows,
			FailedRows:     batch.FailedRows,
			Reason:         reason,
			CreatedAt:      now,
		}
		if err := s.rollbacks.Insert(ctx, tx, log); err != nil {
			return err
		}
		result.RollbackLogID = log.ID

		entries := make([]models.TimelineEntry, 0, len(moved))
		for _, m := range moved {
			entries = append(entries, transitionEntry(m.giftID, m.from, m.to, actor.ID, "rollback of batch "+batch.TransactionRef+": "+reason, now))
		}
		return s.timeline.AppendMany(ctx, tx, entries)
	})
	if err != nil {
		return nil, transactionError(err, "rollback failed")
	}

	result.FailedCount = len(result.FailedRows)
	s.observeRows("rollback", tab, result.RolledBackCount, result.FailedCount)
	s.deps.logger.Info("gift batch rolled back",
		zap.Int64("batch_id", result.BatchID),
		zap.String("tab", string(tab)),
		zap.Int("rolled_back", result.RolledBackCount),
		zap.String("actor_id", actor.ID),
	)
	for _, m := range moved {
		s.deps.notify(ctx, GiftNotification{
			GiftID: m.giftID, Tab: tab, FromStatus: m.from, ToStatus: m.to,
			ActorID: actor.ID, BatchRef: result.TransactionRef, OccurredAt: now,
		})
	}
	return result, nil
}

func (s *GiftBatchService) lockBatch(ctx context.Context, tx sqlx.ExtContext, ref string, id int64) (*models.GiftBatch, error) {
	var batch *models.GiftBatch
	var err error
	if ref != "" {
		batch, err = s.batches.LockByTransactionRef(ctx, tx, ref)
	} else {
		batch, err = s.batches.LockByID(ctx, tx, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			target := ref
			if target == "" {
				target = fmt.Sprintf("%d", id)
			}
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("batch %s not found", target))
		}
		return nil, err
	}
	return batch, nil
}

func checkRollbackTarget(batch *models.GiftBatch, tab workflow.Tab) error {
	switch batch.Status {
	case models.BatchStatusCompleted:
		if batch.Tab != string(tab) {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch %d belongs to tab %s, not %s", batch.ID, batch.Tab, tab)),
				map[string]interface{}{"batchTab": batch.Tab, "tab": tab},
			)
		}
		return nil
	case models.BatchStatusRolledBack:
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "batch already rolled back"),
			map[string]interface{}{"batchId": batch.ID, "rolledBackAt": batch.RolledBackAt},
		)
	}
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no completed batch %d to roll back (status %s)", batch.ID, batch.Status))
}

// reverseRows applies inverse to every row the batch touched. Rows that moved on
// to a status the inverse does not cover are reported and left as they are.
func (s *GiftBatchService) reverseRows(ctx context.Context, tx sqlx.ExtContext, batch *models.GiftBatch, inverse workflow.RollbackSpec, result *dto.RollbackResult) (int, []bulkRowOutcome, error) {
	ids, err := s.batches.ItemIDs(ctx, tx, batch.ID)
	if err != nil {
		return 0, nil, err
	}
	assignments := inverse.Assignments()
	var moved []bulkRowOutcome
	reversed := 0
	for i, id := range ids {
		gift, err := s.gifts.LockByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.FailedRows = append(result.FailedRows, rowFailure(i+1, id, giftNotFound(id)))
				continue
			}
			return 0, nil, err
		}
		if !inverse.Allows(gift.WorkflowStatus) {
			result.FailedRows = append(result.FailedRows, dto.RowFailure{
				Row: i + 1, GiftID: id, Kind: appErrors.CodeIllegalTransition,
				Reason: fmt.Sprintf("cannot roll back a request in status %s", gift.WorkflowStatus),
			})
			continue
		}
		rowErr, err := repository.WithSavepoint(ctx, tx, rollbackSavepoint, func() error {
			return s.gifts.ApplyAssignments(ctx, tx, id, gift.WorkflowStatus, assignments, s.deps.now())
		})
		if err != nil {
			return 0, nil, err
		}
		if rowErr != nil {
			s.deps.logger.Warn("rollback row rejected by store", zap.Int64("gift_id", id), zap.Error(rowErr))
			result.FailedRows = append(result.FailedRows, dto.RowFailure{Row: i + 1, GiftID: id, Kind: appErrors.CodeConflict, Reason: "row could not be reverted"})
			continue
		}
		reversed++
		if gift.WorkflowStatus != inverse.ResetTo {
			moved = append(moved, bulkRowOutcome{giftID: id, from: gift.WorkflowStatus, to: inverse.ResetTo})
		}
	}
	return reversed, moved, nil
}

// ListBatches returns batch headers.
func (s *GiftBatchService) ListBatches(ctx context.Context, actor *workflow.Actor, query dto.BatchListQuery) ([]models.GiftBatch, error) {
	if err := s.gate.AuthorizeRead(actor); err != nil {
		return nil, err
	}
	batches, err := s.batches.List(ctx, models.GiftBatchFilter{
		Type:   query.Type,
		Tab:    strings.TrimSpace(query.Tab),
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, nil
}

// GetBatch returns a batch header with its rollback history.
func (s *GiftBatchService) GetBatch(ctx context.Context, actor *workflow.Actor, id int64) (*dto.BatchDetail, error) {
	if err := s.gate.AuthorizeRead(actor); err != nil {
		return nil, err
	}
	batch, err := s.loadBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.rollbacks.ListByBatch(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rollback history")
	}
	return &dto.BatchDetail{Batch: *batch, Rollbacks: logs}, nil
}

// ExportBatch renders the requests of a batch as csv, xlsx or pdf.
func (s *GiftBatchService) ExportBatch(ctx context.Context, actor *workflow.Actor, id int64, format string) ([]byte, string, string, error) {
	if err := s.gate.AuthorizeRead(actor); err != nil {
		return nil, "", "", err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	switch format {
	case "csv", "xlsx", "pdf":
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format %q is not one of: csv, xlsx, pdf", format))
	}
	batch, err := s.loadBatch(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	gifts, err := s.gifts.ListByBatch(ctx, id)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch requests")
	}
	body, contentType, err := s.reporter.Render(*batch, gifts, format)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render batch report")
	}
	filename := fmt.Sprintf("gift-batch-%d.%s", batch.ID, format)
	return body, filename, contentType, nil
}

func (s *GiftBatchService) loadBatch(ctx context.Context, id int64) (*models.GiftBatch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("batch %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

func (s *GiftBatchService) observeRows(operation string, tab workflow.Tab, ok, failed int) {
	if s.deps.metrics == nil {
		return
	}
	s.deps.metrics.ObserveBulkRows(operation, string(tab), "success", ok)
	s.deps.metrics.ObserveBulkRows(operation, string(tab), "failed", failed)
}
