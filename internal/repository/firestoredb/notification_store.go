package firestoredb

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// NotificationStore keeps notifications in the notifications collection.
type NotificationStore struct {
	client *firestore.Client
}

// NewNotificationStore constructs a Firestore notification store.
func NewNotificationStore(client *firestore.Client) *NotificationStore {
	return &NotificationStore{client: client}
}

func (s *NotificationStore) collection() *firestore.CollectionRef {
	return s.client.Collection(notificationsCollection)
}

func decodeNotification(snap *firestore.DocumentSnapshot) (*models.Notification, error) {
	var n models.Notification
	if err := snap.DataTo(&n); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", snap.Ref.ID, err)
	}
	n.ID = snap.Ref.ID
	return &n, nil
}

// Create stores n under its id.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	_, err := s.collection().Doc(n.ID).Create(ctx, n)
	return translate(err, "create notification")
}

// FindByID loads a notification document.
func (s *NotificationStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	snap, err := s.collection().Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "get notification")
	}
	return decodeNotification(snap)
}

// ListByRecipient pages the recipient's notifications, newest first.
func (s *NotificationStore) ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	page, size := repository.Pagination(filter.Page, filter.PageSize)
	q := s.collection().Where("userId", "==", filter.RecipientID)

	total, err := count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	items := []models.Notification{}
	iter := q.OrderBy("createdAt", firestore.Desc).Offset((page - 1) * size).Limit(size).Documents(ctx)
	err = collect(iter, func(snap *firestore.DocumentSnapshot) error {
		n, err := decodeNotification(snap)
		if err != nil {
			return err
		}
		items = append(items, *n)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags the notification read, keeping the first read time.
func (s *NotificationStore) MarkRead(ctx context.Context, id string, readAt time.Time) (*models.Notification, error) {
	var result *models.Notification
	ref := s.collection().Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		n, err := decodeNotification(snap)
		if err != nil {
			return err
		}
		result = n
		if n.IsRead && n.ReadAt != nil {
			return nil
		}
		n.IsRead = true
		at := readAt
		n.ReadAt = &at
		return tx.Update(ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: at},
		})
	})
	if err != nil {
		return nil, translate(err, "mark notification read")
	}
	return result, nil
}
