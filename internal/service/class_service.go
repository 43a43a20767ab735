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

type classRepository interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	Update(ctx context.Context, class *models.Class) error
	AddStudents(ctx context.Context, classID string, studentIDs []string) ([]string, int, error)
	RemoveStudent(ctx context.Context, classID, studentID string) (bool, error)
}

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	OwnerID     string   `json:"owner_id" validate:"required"`
	Schedule    string   `json:"schedule" validate:"required"`
	Room        string   `json:"room" validate:"max=100"`
	Description string   `json:"description" validate:"max=2000"`
	Students    []string `json:"students" validate:"omitempty,dive,required"`
}

// UpdateClassRequest modifies class fields. Nil fields are left untouched.
type UpdateClassRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Schedule    *string `json:"schedule" validate:"omitempty,min=1"`
	Room        *string `json:"room" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// AddStudentsRequest enrolls students.
type AddStudentsRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// InactivityPolicyRequest updates the inactivity policy of a class.
type InactivityPolicyRequest struct {
	ThresholdMinutes int   `json:"threshold_minutes" validate:"min=1,max=60"`
	Enabled          *bool `json:"enabled" validate:"required"`
}

// ClassService coordinates class and roster operations.
type ClassService struct {
	repo      classRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:      repo,
		cache:     cache,
		validator: newValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	filter.Page, filter.PageSize = repository.Pagination(filter.Page, filter.PageSize)
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	return class, nil
}

// Create adds a new class owned by req.OwnerID.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Schedule = strings.TrimSpace(req.Schedule)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}

	now := s.now()
	class := &models.Class{
		ID:          newID(classIDPrefix),
		Name:        req.Name,
		OwnerID:     req.OwnerID,
		Schedule:    req.Schedule,
		Room:        strings.TrimSpace(req.Room),
		Description: req.Description,
		Students:    dedupe(req.Students),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if class.Room == "" {
		class.Room = models.DefaultRoom
	}

	if err := s.repo.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists")
		}
		return nil, appErrors.Internal(err, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("owner_id", class.OwnerID))
	return class, nil
}

// Update modifies descriptive class fields. Only the owner may update.
func (s *ClassService) Update(ctx context.Context, id, issuerID string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}

	class, err := s.ownedClass(ctx, id, issuerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Schedule != nil {
		class.Schedule = strings.TrimSpace(*req.Schedule)
	}
	if req.Room != nil {
		class.Room = strings.TrimSpace(*req.Room)
		if class.Room == "" {
			class.Room = models.DefaultRoom
		}
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	class.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, lookupError(err, "class not found", "failed to update class")
	}
	s.invalidate(ctx, class.ID)
	return class, nil
}

// AddStudents enrolls the given students, skipping those already on the roster.
func (s *ClassService) AddStudents(ctx context.Context, id, issuerID string, req AddStudentsRequest) (*models.RosterChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid roster payload")
	}
	if _, err := s.ownedClass(ctx, id, issuerID); err != nil {
		return nil, err
	}

	added, total, err := s.repo.AddStudents(ctx, id, dedupe(req.StudentIDs))
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to add students")
	}
	if len(added) > 0 {
		s.invalidate(ctx, id, added...)
		s.logger.Info("students enrolled", zap.String("class_id", id), zap.Int("added", len(added)), zap.Int("total", total))
	}
	return &models.RosterChange{ClassID: id, Added: added, Total: total}, nil
}

// RemoveStudent drops a student from the roster.
func (s *ClassService) RemoveStudent(ctx context.Context, id, issuerID, studentID string) error {
	if strings.TrimSpace(studentID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if _, err := s.ownedClass(ctx, id, issuerID); err != nil {
		return err
	}

	removed, err := s.repo.RemoveStudent(ctx, id, studentID)
	if err != nil {
		return lookupError(err, "class not found", "failed to remove student")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
	}
	s.invalidate(ctx, id, studentID)
	s.logger.Info("student removed", zap.String("class_id", id), zap.String("student_id", studentID))
	return nil
}

// UpdateInactivityPolicy replaces the inactivity policy of a class.
func (s *ClassService) UpdateInactivityPolicy(ctx context.Context, id, issuerID string, req InactivityPolicyRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "threshold_minutes must be between 1 and 60")
	}

	class, err := s.ownedClass(ctx, id, issuerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updatedBy := issuerID
	class.InactivityPolicy = models.InactivityPolicy{
		ThresholdMinutes: req.ThresholdMinutes,
		Enabled:          *req.Enabled,
		UpdatedAt:        &now,
		UpdatedBy:        &updatedBy,
	}
	class.UpdatedAt = now

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, lookupError(err, "class not found", "failed to update inactivity policy")
	}
	return class, nil
}

func (s *ClassService) ownedClass(ctx context.Context, id, issuerID string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	if err := requireOwner(class.OwnerID, issuerID, "only the class owner may modify this class"); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *ClassService) invalidate(ctx context.Context, classID string, studentIDs ...string) {
	_ = s.cache.Invalidate(ctx, classStatsPatterns(classID, studentIDs...)...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
