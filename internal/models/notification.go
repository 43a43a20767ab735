package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultNotificationLimit is the page size for notification listings.
const DefaultNotificationLimit = 20

// Payload carries string key/values attached to a notification, persisted as JSONB.
type Payload map[string]string

// Value marshals the payload for persistence.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		p = Payload{}
	}
	data, err := json.Marshal(map[string]string(p))
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload column.
func (p *Payload) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = Payload{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Payload", value)
	}
	decoded := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("unmarshal notification payload: %w", err)
		}
	}
	*p = decoded
	return nil
}

// Notification is a persisted push message addressed to one user.
type Notification struct {
	ID          string     `db:"id" json:"id" firestore:"-"`
	RecipientID string     `db:"recipient_id" json:"recipient_id" firestore:"userId"`
	Title       string     `db:"title" json:"title" firestore:"title"`
	Body        string     `db:"body" json:"body" firestore:"body"`
	Payload     Payload    `db:"payload" json:"payload" firestore:"data"`
	IsRead      bool       `db:"is_read" json:"is_read" firestore:"read"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty" firestore:"readAt"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at" firestore:"createdAt"`
}

// NotificationFilter scopes a recipient's notification listing.
type NotificationFilter struct {
	RecipientID string
	Page        int
	PageSize    int
}

// BroadcastFailure describes a recipient whose delivery failed.
type BroadcastFailure struct {
	RecipientID string `json:"recipient_id"`
	Reason      string `json:"reason"`
}

// BroadcastResult summarises a class-wide fan-out.
type BroadcastResult struct {
	ClassID    string             `json:"class_id"`
	Recipients int                `json:"recipients"`
	Sent       int                `json:"sent"`
	Failed     []BroadcastFailure `json:"failed"`
}
