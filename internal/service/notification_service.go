package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/pkg/jobs"
)

// TransitionNotification is the payload delivered for each transition outcome.
type TransitionNotification struct {
	UserID    string    `json:"user_id"`
	BookingID string    `json:"booking_id"`
	Level     string    `json:"level"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// NotificationDispatcher delivers a notification to its recipient.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification TransitionNotification) error
}

// LogDispatcher writes notifications to the structured log. It stands in for
// an outbound channel (mail, push) which is outside this service's scope.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher constructs a LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch implements NotificationDispatcher.
func (d *LogDispatcher) Dispatch(_ context.Context, n TransitionNotification) error {
	d.logger.Info("booking notification",
		zap.String("user_id", n.UserID),
		zap.String("booking_id", n.BookingID),
		zap.String("level", n.Level),
		zap.String("message", n.Message))
	return nil
}

// NotificationService queues transition notices for asynchronous delivery so
// transition handling never blocks on the outbound channel.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService builds the service and its backing queue. Call Start
// before use and Stop on shutdown.
func NewNotificationService(dispatcher NotificationDispatcher, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		notification, ok := job.Payload.(TransitionNotification)
		if !ok {
			logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
			return nil
		}
		return dispatcher.Dispatch(ctx, notification)
	}
	return &NotificationService{
		queue:  jobs.NewQueue("notifications", handler, cfg),
		logger: logger,
	}
}

// Start begins background delivery.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyTransition implements the view controller's notifier hook.
func (s *NotificationService) NotifyTransition(userID, bookingID string, notice Notice) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "booking.transition",
		Payload: TransitionNotification{
			UserID:    userID,
			BookingID: bookingID,
			Level:     notice.Level,
			Code:      notice.Code,
			Message:   notice.Message,
			At:        time.Now().UTC(),
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue booking notification", zap.String("booking_id", bookingID), zap.Error(err))
	}
}
