package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

const notificationColumns = `id, recipient_id, title, body, payload, is_read, read_at, created_at`

// NotificationRepository manages persisted notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create persists a notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	const query = `INSERT INTO notifications (` + notificationColumns + `) VALUES (:id, :recipient_id, :title, :body, :payload, :is_read, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID returns a notification by id.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient returns a page of the recipient's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	page, size := Pagination(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", notificationColumns, size, offset)
	items := []models.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, filter.RecipientID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, filter.RecipientID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags a notification as read. The first read time is kept.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) (*models.Notification, error) {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1 RETURNING ` + notificationColumns
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id, readAt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}
