package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
	"github.com/noah-isme/csi-attendance-api/pkg/jobs"
)

// SessionStartedJob is the queue job type announcing a started session.
const SessionStartedJob = "session_started"

type jobDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

type classBroadcaster interface {
	Broadcast(ctx context.Context, classID string, req BroadcastRequest) (*models.BroadcastResult, error)
}

// QueueNotifier hands started sessions to a background queue.
type QueueNotifier struct {
	queue jobDispatcher
}

// NewQueueNotifier constructs a SessionNotifier backed by queue.
func NewQueueNotifier(queue jobDispatcher) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

// SessionStarted enqueues the roster broadcast for session. It never waits for
// queue capacity: a full queue drops the notification with an error.
func (n *QueueNotifier) SessionStarted(ctx context.Context, session models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.queue.TryEnqueue(jobs.Job{ID: session.ID, Type: SessionStartedJob, Payload: session})
}

// SessionNotifyWorker broadcasts "session started" messages to a class roster.
type SessionNotifyWorker struct {
	notifications classBroadcaster
	logger        *zap.Logger
}

// NewSessionNotifyWorker constructs a worker.
func NewSessionNotifyWorker(notifications classBroadcaster, logger *zap.Logger) *SessionNotifyWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionNotifyWorker{notifications: notifications, logger: logger}
}

// Handle processes a queue job. Only store failures are returned for retry;
// a partially failed broadcast is logged since resending would duplicate delivered messages.
func (w *SessionNotifyWorker) Handle(ctx context.Context, job jobs.Job) error {
	session, ok := job.Payload.(models.Session)
	if !ok {
		w.logger.Error("unexpected job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	result, err := w.notifications.Broadcast(ctx, session.ClassID, BroadcastRequest{
		Title:   "Attendance session started",
		Body:    fmt.Sprintf("%s has started", session.Name),
		Payload: map[string]string{"sessionId": session.ID, "type": SessionStartedJob},
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrInternal) {
			return err
		}
		w.logger.Info("session notification skipped", zap.String("session_id", session.ID), zap.Error(err))
		return nil
	}
	if len(result.Failed) > 0 {
		w.logger.Warn("session notification partially failed",
			zap.String("session_id", session.ID),
			zap.Int("sent", result.Sent),
			zap.Int("failed", len(result.Failed)),
		)
	}
	return nil
}
