package push

import (
	"context"

	"go.uber.org/zap"
)

// LogSender records pushes in the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a sender for environments without FCM credentials.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and always succeeds unless ctx is done.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("push message",
		zap.String("topic", Topic(msg.RecipientID)),
		zap.String("title", msg.Title),
		zap.Any("data", msg.Data),
	)
	return nil
}
