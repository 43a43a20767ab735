package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// NotificationStore keeps notifications in insertion order.
type NotificationStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]*models.Notification
}

// NewNotificationStore builds an empty notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{items: make(map[string]*models.Notification)}
}

func cloneNotification(n *models.Notification) *models.Notification {
	out := *n
	if n.Payload != nil {
		out.Payload = make(models.Payload, len(n.Payload))
		for k, v := range n.Payload {
			out.Payload[k] = v
		}
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		out.ReadAt = &t
	}
	return &out
}

// Create stores n.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[n.ID]; exists {
		return repository.ErrConflict
	}
	s.items[n.ID] = cloneNotification(n)
	s.order = append(s.order, n.ID)
	return nil
}

// FindByID returns a copy of the notification.
func (s *NotificationStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneNotification(n), nil
}

// ListByRecipient pages the recipient's notifications, newest first.
func (s *NotificationStore) ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := []models.Notification{}
	for i := len(s.order) - 1; i >= 0; i-- {
		n := s.items[s.order[i]]
		if n.RecipientID == filter.RecipientID {
			matched = append(matched, *cloneNotification(n))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page, size := repository.Pagination(filter.Page, filter.PageSize)
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

// MarkRead flags the notification read, keeping the first read time.
func (s *NotificationStore) MarkRead(ctx context.Context, id string, readAt time.Time) (*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	n.IsRead = true
	if n.ReadAt == nil {
		t := readAt
		n.ReadAt = &t
	}
	return cloneNotification(n), nil
}
