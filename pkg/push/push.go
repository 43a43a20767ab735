// Package push delivers best-effort device notifications.
package push

import (
	"context"
	"fmt"
)

// Message is a push payload addressed to a single recipient.
type Message struct {
	RecipientID string
	Title       string
	Body        string
	Data        map[string]string
}

// Sender delivers a message to a recipient's devices.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Topic is the FCM topic every device of a user subscribes to.
func Topic(recipientID string) string {
	return fmt.Sprintf("user_%s", recipientID)
}
