package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender publishes messages to the recipient's Firebase Cloud Messaging topic.
type FCMSender struct {
	client messagingClient
	logger *zap.Logger
}

// NewFCMSender builds an FCM sender from an initialised Firebase app.
func NewFCMSender(ctx context.Context, app *firebase.App, logger *zap.Logger) (*FCMSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return newFCMSender(client, logger), nil
}

func newFCMSender(client messagingClient, logger *zap.Logger) *FCMSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FCMSender{client: client, logger: logger}
}

// Send publishes msg to topic user_{recipientId}.
func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	if msg.RecipientID == "" {
		return fmt.Errorf("push recipient is required")
	}
	id, err := s.client.Send(ctx, &messaging.Message{
		Topic: Topic(msg.RecipientID),
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return fmt.Errorf("send fcm message: %w", err)
	}
	s.logger.Debug("fcm message sent", zap.String("message_id", id), zap.String("recipient_id", msg.RecipientID))
	return nil
}
