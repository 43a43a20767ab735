package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
	"github.com/noah-isme/csi-attendance-api/pkg/push"
)

const defaultBroadcastConcurrency = 8

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) (*models.Notification, error)
}

// SendNotificationRequest addresses a push to one user.
type SendNotificationRequest struct {
	RecipientID string            `json:"recipient_id" validate:"required"`
	Title       string            `json:"title" validate:"required,max=200"`
	Body        string            `json:"body" validate:"required,max=2000"`
	Payload     map[string]string `json:"payload"`
}

// BroadcastRequest addresses a push to every student of a class.
type BroadcastRequest struct {
	Title   string            `json:"title" validate:"required,max=200"`
	Body    string            `json:"body" validate:"required,max=2000"`
	Payload map[string]string `json:"payload"`
}

// NotificationService delivers push messages and keeps a per-user inbox.
type NotificationService struct {
	classes     classReader
	repo        notificationRepository
	sender      push.Sender
	metrics     *MetricsService
	concurrency int
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewNotificationService constructs NotificationService. concurrency bounds broadcast fan-out.
func NewNotificationService(classes classReader, repo notificationRepository, sender push.Sender, metrics *MetricsService, concurrency int, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = push.NewLogSender(logger)
	}
	if concurrency <= 0 {
		concurrency = defaultBroadcastConcurrency
	}
	return &NotificationService{
		classes:     classes,
		repo:        repo,
		sender:      sender,
		metrics:     metrics,
		concurrency: concurrency,
		validator:   newValidator(validate),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Send delivers a message and stores it in the recipient's inbox.
// Nothing is stored when delivery fails.
func (s *NotificationService) Send(ctx context.Context, req SendNotificationRequest) (*models.Notification, error) {
	req.RecipientID = strings.TrimSpace(req.RecipientID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid notification payload")
	}
	notification, err := s.deliver(ctx, req.RecipientID, req.Title, req.Body, req.Payload)
	if err != nil {
		return nil, err
	}
	return notification, nil
}

// Broadcast sends a message to every student on a class roster.
// Per-recipient failures are collected and never abort the batch.
func (s *NotificationService) Broadcast(ctx context.Context, classID string, req BroadcastRequest) (*models.BroadcastResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid broadcast payload")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	if len(class.Students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class has no students")
	}

	payload := copyPayload(req.Payload)
	payload["classId"] = class.ID

	failures := make([]*models.BroadcastFailure, len(class.Students))
	var (
		mu   sync.Mutex
		sent int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, recipient := range class.Students {
		i, recipient := i, recipient
		g.Go(func() error {
			if _, err := s.deliver(gctx, recipient, req.Title, req.Body, payload); err != nil {
				failures[i] = &models.BroadcastFailure{RecipientID: recipient, Reason: appErrors.FromError(err).Message}
				return nil
			}
			mu.Lock()
			sent++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := &models.BroadcastResult{
		ClassID:    class.ID,
		Recipients: len(class.Students),
		Sent:       sent,
		Failed:     []models.BroadcastFailure{},
	}
	for _, failure := range failures {
		if failure != nil {
			result.Failed = append(result.Failed, *failure)
		}
	}
	s.logger.Info("broadcast finished",
		zap.String("class_id", class.ID),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// List returns a user's notifications newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page, limit int) ([]models.Notification, *models.Pagination, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "user_id is required")
	}
	if limit <= 0 {
		limit = models.DefaultNotificationLimit
	}
	page, limit = repository.Pagination(page, limit)

	items, total, err := s.repo.ListByRecipient(ctx, models.NotificationFilter{RecipientID: userID, Page: page, PageSize: limit})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, &models.Pagination{Page: page, PageSize: limit, TotalCount: total}, nil
}

// MarkRead flags a notification as read. A non-empty userID must match the recipient.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "notification not found", "failed to load notification")
	}
	if userID != "" && notification.RecipientID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another user")
	}
	if notification.IsRead {
		return notification, nil
	}
	updated, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		return nil, lookupError(err, "notification not found", "failed to mark notification read")
	}
	return updated, nil
}

func (s *NotificationService) deliver(ctx context.Context, recipientID, title, body string, payload map[string]string) (*models.Notification, error) {
	err := s.sender.Send(ctx, push.Message{RecipientID: recipientID, Title: title, Body: body, Data: payload})
	s.metrics.NotificationDelivered(err == nil)
	if err != nil {
		s.logger.Warn("push delivery failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to deliver notification")
	}

	notification := &models.Notification{
		ID:          newID(notificationIDPrefix),
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Payload:     models.Payload(copyPayload(payload)),
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Internal(err, "failed to store notification")
	}
	return notification, nil
}

func copyPayload(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
