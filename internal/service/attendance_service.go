package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error)
	InsertIfAbsent(ctx context.Context, record *models.Attendance) (*models.Attendance, bool, error)
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
}

// CheckInRequest is an automatic presence signal for a student.
type CheckInRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id"`
}

// SetStatusRequest is a manual status override by the class owner.
type SetStatusRequest struct {
	Status   string  `json:"status" validate:"required,attendance_status"`
	IssuerID string  `json:"issuer_id"`
	Reason   *string `json:"reason" validate:"omitempty,max=500"`
}

// AttendanceService records check-ins and manual status changes.
type AttendanceService struct {
	sessions  sessionReader
	classes   classReader
	records   attendanceRepository
	cache     *CacheService
	metrics   *MetricsService
	opts      AttendanceOptions
	locks     *keyedMutex
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(sessions sessionReader, classes classReader, records attendanceRepository, cache *CacheService, metrics *MetricsService, opts AttendanceOptions, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		sessions:  sessions,
		classes:   classes,
		records:   records,
		cache:     cache,
		metrics:   metrics,
		opts:      opts,
		locks:     newKeyedMutex(),
		validator: newValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckIn marks a student present unless a record already exists, in which
// case the existing record is returned unchanged. created reports a new record.
func (s *AttendanceService) CheckIn(ctx context.Context, sessionID string, req CheckInRequest) (record *models.Attendance, created bool, err error) {
	sessionID = strings.TrimSpace(sessionID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if sessionID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "session_id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err, "invalid check-in payload")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, false, lookupError(err, "session not found", "failed to load session")
	}
	if req.ClassID != "" && req.ClassID != session.ClassID {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "class_id does not match the session")
	}
	if s.opts.EnforceRoster {
		class, err := s.classes.FindByID(ctx, session.ClassID)
		if err != nil {
			return nil, false, lookupError(err, "class not found", "failed to load class")
		}
		if !class.HasStudent(req.StudentID) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
		}
	}

	unlock := s.locks.Lock(attendanceLockKey(session.ID, req.StudentID))
	defer unlock()

	now := s.now()
	done := storeTimer(s.metrics, "attendance.insert_if_absent")
	record, created, err = s.records.InsertIfAbsent(ctx, &models.Attendance{
		SessionID:  session.ID,
		StudentID:  req.StudentID,
		ClassID:    session.ClassID,
		Status:     models.AttendanceStatusPresent,
		Source:     models.AttendanceSourceCheckIn,
		RecordedAt: now,
		UpdatedAt:  now,
	})
	done()
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to record check-in")
	}

	if created {
		s.metrics.AttendanceRecorded(record.Source, record.Status)
		s.invalidate(ctx, session.ClassID, req.StudentID)
		s.logger.Info("student checked in",
			zap.String("session_id", session.ID),
			zap.String("student_id", req.StudentID),
		)
	}
	return record, created, nil
}

// SetStatus overwrites a student's status for a session on behalf of the class owner.
func (s *AttendanceService) SetStatus(ctx context.Context, sessionID, studentID string, req SetStatusRequest) (*models.Attendance, error) {
	sessionID = strings.TrimSpace(sessionID)
	studentID = strings.TrimSpace(studentID)
	if sessionID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_id and student_id are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "status must be one of present, late, absent, excused")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}
	if s.opts.EnforceOwnership {
		class, err := s.classes.FindByID(ctx, session.ClassID)
		if err != nil {
			return nil, lookupError(err, "class not found", "failed to load class")
		}
		if err := requireOwner(class.OwnerID, req.IssuerID, "only the class owner may change attendance"); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(attendanceLockKey(session.ID, studentID))
	defer unlock()

	now := s.now()
	record := &models.Attendance{
		SessionID:  session.ID,
		StudentID:  studentID,
		ClassID:    session.ClassID,
		Status:     models.AttendanceStatus(req.Status),
		Reason:     req.Reason,
		Source:     models.AttendanceSourceManual,
		RecordedAt: now,
		UpdatedAt:  now,
		UpdatedBy:  stringPtr(req.IssuerID),
	}

	done := storeTimer(s.metrics, "attendance.upsert")
	stored, err := s.records.Upsert(ctx, record)
	done()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update attendance")
	}

	s.metrics.AttendanceRecorded(stored.Source, stored.Status)
	s.invalidate(ctx, session.ClassID, studentID)
	s.logger.Info("attendance status set",
		zap.String("session_id", session.ID),
		zap.String("student_id", studentID),
		zap.String("status", string(stored.Status)),
		zap.String("issuer_id", req.IssuerID),
	)
	return stored, nil
}

// GetStatus returns the effective status of a student in a session.
// A student without a record is reported absent.
func (s *AttendanceService) GetStatus(ctx context.Context, sessionID, studentID string) (*models.AttendanceStatusView, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session not found", "failed to load session")
	}

	view := &models.AttendanceStatusView{
		SessionID: session.ID,
		StudentID: studentID,
		Status:    models.AttendanceStatusAbsent,
	}
	record, err := s.records.Find(ctx, session.ID, studentID)
	switch {
	case err == nil:
		view.Status = record.Status
		view.Recorded = true
		view.Record = record
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	return view, nil
}

func (s *AttendanceService) invalidate(ctx context.Context, classID, studentID string) {
	_ = s.cache.Invalidate(ctx, classStatsPatterns(classID, studentID)...)
}

func attendanceLockKey(sessionID, studentID string) string {
	return sessionID + "|" + studentID
}
