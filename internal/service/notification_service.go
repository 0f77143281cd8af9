package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gift-approval-api/internal/workflow"
	"github.com/noah-isme/gift-approval-api/pkg/jobs"
)

// JobTypeGiftNotification tags notification jobs on the queue.
const JobTypeGiftNotification = "gift.notification"

// GiftNotification announces a committed status change.
type GiftNotification struct {
	GiftID     int64           `json:"giftId"`
	Tab        workflow.Tab    `json:"tab"`
	Action     workflow.Action `json:"action"`
	FromStatus workflow.Status `json:"fromStatus"`
	ToStatus   workflow.Status `json:"toStatus"`
	ActorID    string          `json:"actorId"`
	BatchRef   string          `json:"batchRef,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NotificationSender delivers one notification to the downstream channel.
type NotificationSender interface {
	Send(ctx context.Context, n GiftNotification) error
}

// LogSender writes notifications to the structured log.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs the default sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements NotificationSender.
func (s *LogSender) Send(_ context.Context, n GiftNotification) error {
	s.logger.Info("gift status changed",
		zap.Int64("gift_id", n.GiftID),
		zap.String("tab", string(n.Tab)),
		zap.String("action", string(n.Action)),
		zap.String("from_status", string(n.FromStatus)),
		zap.String("to_status", string(n.ToStatus)),
		zap.String("actor_id", n.ActorID),
		zap.String("batch_ref", n.BatchRef),
	)
	return nil
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

type notificationMetrics interface {
	ObserveNotification(outcome string)
}

// NotificationService hands notifications to the background queue. Dispatch is
// best-effort: failures are logged and never reach the workflow caller.
type NotificationService struct {
	queue   jobEnqueuer
	metrics notificationMetrics
	logger  *zap.Logger
}

// NewNotificationService constructs the dispatcher. A nil queue disables dispatch.
func NewNotificationService(queue jobEnqueuer, metrics notificationMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, metrics: metrics, logger: logger}
}

// Notify enqueues n without blocking.
func (s *NotificationService) Notify(_ context.Context, n GiftNotification) {
	if s == nil || s.queue == nil {
		return
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeGiftNotification, Payload: n}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.observe("dropped")
		s.logger.Warn("gift notification dropped",
			zap.Int64("gift_id", n.GiftID),
			zap.String("to_status", string(n.ToStatus)),
			zap.Error(err),
		)
		return
	}
	s.observe("enqueued")
}

// Handler returns the queue handler delivering notifications through sender.
func (s *NotificationService) Handler(sender NotificationSender) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(GiftNotification)
		if !ok {
			s.observe("invalid")
			return nil
		}
		if err := sender.Send(ctx, n); err != nil {
			s.observe("failed")
			return fmt.Errorf("send gift notification %d: %w", n.GiftID, err)
		}
		s.observe("sent")
		return nil
	}
}

func (s *NotificationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(outcome)
	}
}
