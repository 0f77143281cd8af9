package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/repository"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

var errStoreDown = errors.New("store unavailable")

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// recordingTx stands in for *sqlx.Tx. Only ExecContext is used by the
// executors directly, for savepoints.
type recordingTx struct {
	sqlx.ExtContext
	statements []string
}

func (r *recordingTx) ExecContext(_ context.Context, query string, _ ...interface{}) (sql.Result, error) {
	r.statements = append(r.statements, query)
	return driver.RowsAffected(0), nil
}

func (r *recordingTx) count(prefix string) int {
	n := 0
	for _, stmt := range r.statements {
		if strings.HasPrefix(stmt, prefix) {
			n++
		}
	}
	return n
}

// fakeTx snapshots the gift and batch stores and restores them when fn fails.
type fakeTx struct {
	gifts     *fakeGiftStore
	batches   *fakeBatchStore
	timeline  *fakeTimeline
	last      *recordingTx
	commits   int
	rollbacks int
}

func (f *fakeTx) RunInTx(_ context.Context, fn func(tx sqlx.ExtContext) error) error {
	var giftSnap map[int64]models.GiftRequest
	var batchSnap map[int64]models.GiftBatch
	timelineLen := 0
	if f.gifts != nil {
		giftSnap = f.gifts.snapshot()
	}
	if f.batches != nil {
		batchSnap = f.batches.snapshot()
	}
	if f.timeline != nil {
		timelineLen = len(f.timeline.entries)
	}

	f.last = &recordingTx{}
	if err := fn(f.last); err != nil {
		f.rollbacks++
		if f.gifts != nil {
			f.gifts.restore(giftSnap)
		}
		if f.batches != nil {
			f.batches.restore(batchSnap)
		}
		if f.timeline != nil {
			f.timeline.entries = f.timeline.entries[:timelineLen]
		}
		return err
	}
	f.commits++
	return nil
}

type fakeGiftStore struct {
	gifts      map[int64]*models.GiftRequest
	nextID     int64
	applyCalls int
	applyErr   map[int64]error
	insertErr  map[string]error
	advanceErr error
	lockErr    error
}

func newFakeGiftStore(gifts ...models.GiftRequest) *fakeGiftStore {
	s := &fakeGiftStore{gifts: make(map[int64]*models.GiftRequest), nextID: 100}
	for i := range gifts {
		g := gifts[i]
		s.gifts[g.ID] = &g
	}
	return s
}

func (s *fakeGiftStore) snapshot() map[int64]models.GiftRequest {
	out := make(map[int64]models.GiftRequest, len(s.gifts))
	for id, g := range s.gifts {
		out[id] = *g
	}
	return out
}

func (s *fakeGiftStore) restore(snap map[int64]models.GiftRequest) {
	s.gifts = make(map[int64]*models.GiftRequest, len(snap))
	for id, g := range snap {
		g := g
		s.gifts[id] = &g
	}
}

func (s *fakeGiftStore) get(id int64) (*models.GiftRequest, error) {
	g, ok := s.gifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *g
	return &copy, nil
}

func (s *fakeGiftStore) GetByID(_ context.Context, id int64) (*models.GiftRequest, error) {
	return s.get(id)
}

func (s *fakeGiftStore) LockByID(_ context.Context, _ sqlx.ExtContext, id int64) (*models.GiftRequest, error) {
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	return s.get(id)
}

func (s *fakeGiftStore) LockIdentity(_ context.Context, _ sqlx.ExtContext, id int64) (*models.GiftIdentity, error) {
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	g, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return &models.GiftIdentity{
		GiftID:         g.ID,
		MemberLogin:    g.MemberLogin,
		MerchantName:   g.MerchantName,
		Currency:       g.Currency,
		WorkflowStatus: g.WorkflowStatus,
		TrackingStatus: g.TrackingStatus,
		IsBO:           g.IsBO,
	}, nil
}

func (s *fakeGiftStore) DeliveryState(_ context.Context, _ sqlx.ExtContext, id int64) (workflow.DeliveryState, error) {
	g, err := s.get(id)
	if err != nil {
		return workflow.DeliveryState{}, err
	}
	return g.DeliveryState(), nil
}

func (s *fakeGiftStore) ApplyAssignments(_ context.Context, _ sqlx.ExtContext, id int64, expected workflow.Status, assignments []workflow.Assignment, now time.Time) error {
	s.applyCalls++
	if err := s.applyErr[id]; err != nil {
		return err
	}
	g, ok := s.gifts[id]
	if !ok || g.WorkflowStatus != expected {
		return repository.ErrStaleStatus
	}
	for _, a := range assignments {
		if err := assign(g, a); err != nil {
			return err
		}
	}
	g.LastModifiedAt = now
	return nil
}

func (s *fakeGiftStore) Insert(_ context.Context, _ sqlx.ExtContext, gift *models.GiftRequest) error {
	if err := s.insertErr[gift.GiftItem]; err != nil {
		return err
	}
	s.nextID++
	gift.ID = s.nextID
	gift.LastModifiedAt = gift.CreatedAt
	copy := *gift
	s.gifts[gift.ID] = &copy
	return nil
}

func (s *fakeGiftStore) AdvanceBatch(_ context.Context, _ sqlx.ExtContext, batchID int64, from, to workflow.Status, now time.Time) (int64, error) {
	if s.advanceErr != nil {
		return 0, s.advanceErr
	}
	var n int64
	for _, g := range s.gifts {
		if g.BatchID != nil && *g.BatchID == batchID && g.WorkflowStatus == from {
			g.WorkflowStatus = to
			g.LastModifiedAt = now
			n++
		}
	}
	return n, nil
}

func (s *fakeGiftStore) List(_ context.Context, filter models.GiftRequestFilter) ([]models.GiftRequest, error) {
	var out []models.GiftRequest
	for _, id := range s.sortedIDs() {
		g := s.gifts[id]
		if len(filter.Status) > 0 && !containsStatus(filter.Status, g.WorkflowStatus) {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (s *fakeGiftStore) ListByBatch(_ context.Context, batchID int64) ([]models.GiftRequest, error) {
	var out []models.GiftRequest
	for _, id := range s.sortedIDs() {
		g := s.gifts[id]
		if g.BatchID != nil && *g.BatchID == batchID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *fakeGiftStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.gifts))
	for id := range s.gifts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsStatus(list []workflow.Status, s workflow.Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func assign(g *models.GiftRequest, a workflow.Assignment) error {
	switch a.Column {
	case workflow.ColWorkflowStatus:
		g.WorkflowStatus = workflow.Status(a.Value.(string))
	case workflow.ColApprovalReviewedBy:
		g.ApprovalReviewedBy = stringValue(a.Value)
	case workflow.ColRejectedBy:
		g.RejectedBy = stringValue(a.Value)
	case workflow.ColRejectionReason:
		g.RejectionReason = stringValue(a.Value)
	case workflow.ColDispatcher:
		g.Dispatcher = stringValue(a.Value)
	case workflow.ColTrackingCode:
		g.TrackingCode = stringValue(a.Value)
	case workflow.ColTrackingStatus:
		g.TrackingStatus = stringValue(a.Value)
	case workflow.ColPurchasedBy:
		g.PurchasedBy = stringValue(a.Value)
	case workflow.ColPurchasedDate:
		g.PurchasedDate = timeValue(a.Value)
	case workflow.ColDeliveredAt:
		g.DeliveredAt = timeValue(a.Value)
	case workflow.ColMKTOpsProof:
		g.MKTOpsProof = stringValue(a.Value)
	case workflow.ColIsBO:
		if a.Value == nil {
			g.IsBO = nil
		} else {
			v := a.Value.(bool)
			g.IsBO = &v
		}
	case workflow.ColKAMProof:
		g.KAMProof = stringValue(a.Value)
	case workflow.ColKAMProofBy:
		g.KAMProofBy = stringValue(a.Value)
	case workflow.ColGiftFeedback:
		g.GiftFeedback = stringValue(a.Value)
	case workflow.ColAuditedBy:
		g.AuditedBy = stringValue(a.Value)
	case workflow.ColAuditRemark:
		g.AuditRemark = stringValue(a.Value)
	case workflow.ColAuditDate:
		g.AuditDate = timeValue(a.Value)
	default:
		return fmt.Errorf("column %q is not writable", a.Column)
	}
	return nil
}

func stringValue(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func timeValue(v interface{}) *time.Time {
	if v == nil {
		return nil
	}
	t := v.(time.Time)
	return &t
}

type fakeTimeline struct {
	entries   []models.TimelineEntry
	appendErr error
}

func (t *fakeTimeline) Append(_ context.Context, entry models.TimelineEntry) error {
	if t.appendErr != nil {
		return t.appendErr
	}
	t.entries = append(t.entries, entry)
	return nil
}

func (t *fakeTimeline) AppendMany(_ context.Context, _ sqlx.ExecerContext, entries []models.TimelineEntry) error {
	if t.appendErr != nil {
		return t.appendErr
	}
	t.entries = append(t.entries, entries...)
	return nil
}

func (t *fakeTimeline) ListByGift(_ context.Context, giftID int64) ([]models.TimelineEntry, error) {
	var out []models.TimelineEntry
	for _, e := range t.entries {
		if e.GiftID == giftID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeMembers struct {
	members map[string]models.Member
	err     error
}

func (m *fakeMembers) Lookup(_ context.Context, login string) (*models.Member, error) {
	if m.err != nil {
		return nil, m.err
	}
	member, ok := m.members[strings.ToLower(strings.TrimSpace(login))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("member %s not found", login))
	}
	return &member, nil
}

func defaultMembers() *fakeMembers {
	return &fakeMembers{members: map[string]models.Member{
		"vip001": {ID: 1, Login: "vip001", MerchantName: "Lucky Star", Currency: "MYR", IsActive: true},
		"vip002": {ID: 2, Login: "vip002", MerchantName: "Lucky Star", Currency: "VND", IsActive: true},
	}}
}

type fakeBatchStore struct {
	batches  map[int64]*models.GiftBatch
	items    map[int64][]int64
	nextID   int64
	failures []string
	failed   []models.GiftBatch
}

func newFakeBatchStore(batches ...models.GiftBatch) *fakeBatchStore {
	s := &fakeBatchStore{batches: make(map[int64]*models.GiftBatch), items: make(map[int64][]int64), nextID: 500}
	for i := range batches {
		b := batches[i]
		s.batches[b.ID] = &b
	}
	return s
}

func (s *fakeBatchStore) snapshot() map[int64]models.GiftBatch {
	out := make(map[int64]models.GiftBatch, len(s.batches))
	for id, b := range s.batches {
		out[id] = *b
	}
	return out
}

func (s *fakeBatchStore) restore(snap map[int64]models.GiftBatch) {
	s.batches = make(map[int64]*models.GiftBatch, len(snap))
	for id, b := range snap {
		b := b
		s.batches[id] = &b
	}
}

func (s *fakeBatchStore) Create(_ context.Context, _ sqlx.ExtContext, batch *models.GiftBatch) error {
	s.nextID++
	batch.ID = s.nextID
	batch.Status = models.BatchStatusProcessing
	batch.IsActive = false
	copy := *batch
	s.batches[batch.ID] = &copy
	return nil
}

func (s *fakeBatchStore) Finalize(_ context.Context, _ sqlx.ExtContext, id int64, success, failed int, now time.Time) error {
	b, ok := s.batches[id]
	if !ok {
		return sql.ErrNoRows
	}
	b.Status = models.BatchStatusCompleted
	b.IsActive = success > 0
	b.SuccessRows = success
	b.FailedRows = failed
	b.CompletedAt = &now
	return nil
}

func (s *fakeBatchStore) RecordFailure(_ context.Context, batch models.GiftBatch, reason string) error {
	batch.Status = models.BatchStatusFailed
	batch.IsActive = false
	s.failed = append(s.failed, batch)
	s.failures = append(s.failures, reason)
	return nil
}

// AddItems rejects a repeated (batch, gift) pair like the table's primary key.
func (s *fakeBatchStore) AddItems(_ context.Context, _ sqlx.ExtContext, batchID int64, giftIDs []int64) error {
	seen := make(map[int64]bool, len(giftIDs))
	for _, id := range s.items[batchID] {
		seen[id] = true
	}
	for _, id := range giftIDs {
		if seen[id] {
			return fmt.Errorf("duplicate key (batch_id, gift_id)=(%d, %d)", batchID, id)
		}
		seen[id] = true
	}
	s.items[batchID] = append(s.items[batchID], giftIDs...)
	return nil
}

func (s *fakeBatchStore) ItemIDs(_ context.Context, _ sqlx.ExtContext, batchID int64) ([]int64, error) {
	return s.items[batchID], nil
}

func (s *fakeBatchStore) GetByID(_ context.Context, id int64) (*models.GiftBatch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *b
	return &copy, nil
}

func (s *fakeBatchStore) LockByID(ctx context.Context, _ sqlx.ExtContext, id int64) (*models.GiftBatch, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeBatchStore) LockByTransactionRef(ctx context.Context, _ sqlx.ExtContext, ref string) (*models.GiftBatch, error) {
	for id, b := range s.batches {
		if b.TransactionRef == ref {
			return s.GetByID(ctx, id)
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeBatchStore) MarkRolledBack(_ context.Context, _ sqlx.ExtContext, id int64, rows int, reason, actorID string, now time.Time) error {
	b, ok := s.batches[id]
	if !ok {
		return sql.ErrNoRows
	}
	b.Status = models.BatchStatusRolledBack
	b.IsActive = false
	b.RolledBackRows = &rows
	b.RollbackReason = &reason
	b.RolledBackBy = &actorID
	b.RolledBackAt = &now
	return nil
}

func (s *fakeBatchStore) List(_ context.Context, filter models.GiftBatchFilter) ([]models.GiftBatch, error) {
	var out []models.GiftBatch
	for _, b := range s.batches {
		if filter.Tab != "" && b.Tab != filter.Tab {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRollbackLogs struct {
	logs []models.RollbackLog
}

func (l *fakeRollbackLogs) Insert(_ context.Context, _ sqlx.ExtContext, log *models.RollbackLog) error {
	log.ID = fmt.Sprintf("rb-%d", len(l.logs)+1)
	l.logs = append(l.logs, *log)
	return nil
}

func (l *fakeRollbackLogs) ListByBatch(_ context.Context, batchID int64) ([]models.RollbackLog, error) {
	var out []models.RollbackLog
	for _, log := range l.logs {
		if log.BatchID == batchID {
			out = append(out, log)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	sent []GiftNotification
}

func (n *recordingNotifier) Notify(_ context.Context, notification GiftNotification) {
	n.sent = append(n.sent, notification)
}

type recordingWorkflowMetrics struct {
	transitions []string
	bulk        map[string]int
}

func (m *recordingWorkflowMetrics) ObserveTransition(tab, action, outcome string) {
	m.transitions = append(m.transitions, tab+"/"+action+"/"+outcome)
}

func (m *recordingWorkflowMetrics) ObserveBulkRows(operation, tab, outcome string, n int) {
	if m.bulk == nil {
		m.bulk = make(map[string]int)
	}
	m.bulk[operation+"/"+tab+"/"+outcome] += n
}

func fullPermissions() workflow.Permissions {
	return workflow.Permissions{workflow.DefaultModule: {"VIEW", "EDIT", "ADD", "IMPORT"}}
}

func actorWithRole(role workflow.Role) *workflow.Actor {
	return &workflow.Actor{ID: "user-" + strings.ToLower(string(role)), Role: role, Permissions: fullPermissions()}
}

func strPtr(s string) *string { return &s }

func giftAt(id int64, status workflow.Status) models.GiftRequest {
	return models.GiftRequest{
		ID:             id,
		MemberID:       1,
		MemberLogin:    "vip001",
		MerchantName:   "Lucky Star",
		Currency:       "MYR",
		GiftItem:       "Gold Watch",
		Category:       string(models.GiftCategoryBirthday),
		CostMYR:        850,
		KAMRequestedBy: "user-kam",
		WorkflowStatus: status,
		CreatedAt:      fixedNow.Add(-48 * time.Hour),
		LastModifiedAt: fixedNow.Add(-48 * time.Hour),
	}
}
