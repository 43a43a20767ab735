package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	Complete(ctx context.Context, id string, endTime time.Time) (*models.Session, error)
	CompleteActive(ctx context.Context, classID string, endTime time.Time) ([]models.Session, error)
}

// SessionNotifier is told about sessions once they are committed.
type SessionNotifier interface {
	SessionStarted(ctx context.Context, session models.Session) error
}

// StartSessionRequest captures the session start payload.
type StartSessionRequest struct {
	ClassID         string `json:"class_id" validate:"required"`
	IssuerID        string `json:"issuer_id" validate:"required"`
	Name            string `json:"name" validate:"max=200"`
	DurationMinutes *int   `json:"duration_minutes" validate:"omitempty,min=0,max=1440"`
}

// SessionService runs the active/completed session lifecycle.
type SessionService struct {
	classes    classReader
	sessions   sessionRepository
	attendance attendanceLister
	cache      *CacheService
	metrics    *MetricsService
	notifier   SessionNotifier
	opts       AttendanceOptions
	locks      *keyedMutex
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService constructs SessionService. notifier may be nil.
func NewSessionService(classes classReader, sessions sessionRepository, attendance attendanceLister, cache *CacheService, metrics *MetricsService, notifier SessionNotifier, opts AttendanceOptions, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultSessionMinutes <= 0 {
		opts.DefaultSessionMinutes = models.DefaultSessionMinutes
	}
	return &SessionService{
		classes:    classes,
		sessions:   sessions,
		attendance: attendance,
		cache:      cache,
		metrics:    metrics,
		notifier:   notifier,
		opts:       opts,
		locks:      newKeyedMutex(),
		validator:  newValidator(validate),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartSession opens a new active session for a class, completing any session still active.
func (s *SessionService) StartSession(ctx context.Context, req StartSessionRequest) (*models.Session, error) {
	req.ClassID = strings.TrimSpace(req.ClassID)
	req.IssuerID = strings.TrimSpace(req.IssuerID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	if s.opts.EnforceOwnership {
		if err := requireOwner(class.OwnerID, req.IssuerID, "only the class owner may start a session"); err != nil {
			return nil, err
		}
	}

	session, err := s.openSession(ctx, class.ID, req)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.SessionStarted(ctx, *session); err != nil {
			s.logger.Warn("failed to schedule session notification", zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	return session, nil
}

// openSession completes the active session of classID and creates its successor
// while holding the class lock.
func (s *SessionService) openSession(ctx context.Context, classID string, req StartSessionRequest) (*models.Session, error) {
	unlock := s.locks.Lock(classID)
	defer unlock()

	now := s.now()
	done := storeTimer(s.metrics, "sessions.complete_active")
	closed, err := s.sessions.CompleteActive(ctx, classID, now)
	done()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to complete active session")
	}

	duration := s.opts.DefaultSessionMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Session %s", now.Format(DateLayout))
	}

	session := &models.Session{
		ID:                     newID(sessionIDPrefix),
		ClassID:                classID,
		OwnerID:                req.IssuerID,
		Name:                   name,
		StartTime:              now,
		Status:                 models.SessionStatusActive,
		DurationMinutesPlanned: duration,
	}

	done = storeTimer(s.metrics, "sessions.create")
	err = s.sessions.Create(ctx, session)
	done()
	if err != nil {
		if len(closed) > 0 {
			s.logger.Warn("sessions completed but successor not created",
				zap.String("class_id", classID),
				zap.Strings("completed_session_ids", sessionIDs(closed)),
				zap.Error(err),
			)
			s.invalidate(ctx, classID)
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already has an active session")
		}
		return nil, appErrors.Internal(err, "failed to create session")
	}

	for _, prev := range closed {
		s.logger.Info("session completed implicitly",
			zap.String("session_id", prev.ID),
			zap.String("class_id", prev.ClassID),
			zap.String("replaced_by", session.ID),
		)
	}
	s.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("class_id", session.ClassID),
		zap.String("owner_id", session.OwnerID),
	)
	s.metrics.SessionStarted()
	s.invalidate(ctx, classID)
	return session, nil
}

func sessionIDs(sessions []models.Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	return ids
}

// EndSession completes a session. Ending a completed session returns it unchanged.
func (s *SessionService) EndSession(ctx context.Context, sessionID, issuerID string) (*models.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_id is required")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	if s.opts.EnforceOwnership {
		if err := requireOwner(session.OwnerID, issuerID, "only the session owner may end it"); err != nil {
			return nil, err
		}
	}
	if !session.Active() {
		return session, nil
	}

	unlock := s.locks.Lock(session.ClassID)
	defer unlock()

	done := storeTimer(s.metrics, "sessions.complete")
	ended, err := s.sessions.Complete(ctx, sessionID, s.now())
	done()
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to end session")
	}
	s.logger.Info("session ended", zap.String("session_id", ended.ID), zap.String("class_id", ended.ClassID))
	s.invalidate(ctx, ended.ClassID)
	return ended, nil
}

// GetSession returns a session with its recorded attendance.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.SessionDetail, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{SessionID: session.ID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	return &models.SessionDetail{Session: *session, Attendance: records}, nil
}

// ListClassSessions returns sessions of a class, optionally bounded by start time.
func (s *SessionService) ListClassSessions(ctx context.Context, classID string, rng *models.DateRange) ([]models.Session, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	filter := models.SessionFilter{ClassID: classID}
	if rng != nil {
		filter.From = &rng.Start
		filter.To = &rng.End
	}
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sessions")
	}
	return sessions, nil
}

// SessionRoster lists every enrolled student with their effective status,
// followed by records left by students outside the roster.
func (s *SessionService) SessionRoster(ctx context.Context, sessionID string) (*models.SessionRoster, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	class, err := s.classes.FindByID(ctx, session.ClassID)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{SessionID: session.ID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}

	byStudent := make(map[string]models.Attendance, len(records))
	for _, record := range records {
		byStudent[record.StudentID] = record
	}

	entries := make([]models.RosterEntry, 0, len(class.Students)+len(records))
	for _, studentID := range class.Students {
		entry := models.RosterEntry{StudentID: studentID, Status: models.AttendanceStatusAbsent, Enrolled: true}
		if record, ok := byStudent[studentID]; ok {
			rec := record
			entry.Status = rec.Status
			entry.Recorded = true
			entry.Record = &rec
		}
		entries = append(entries, entry)
	}
	for _, record := range records {
		if class.HasStudent(record.StudentID) {
			continue
		}
		rec := record
		entries = append(entries, models.RosterEntry{
			StudentID: rec.StudentID,
			Status:    rec.Status,
			Recorded:  true,
			Record:    &rec,
		})
	}
	return &models.SessionRoster{Session: *session, Entries: entries}, nil
}

func (s *SessionService) invalidate(ctx context.Context, classID string) {
	_ = s.cache.Invalidate(ctx, classStatsPatterns(classID)...)
}
