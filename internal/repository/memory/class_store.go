package memory

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// ClassStore keeps classes in insertion order.
type ClassStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]*models.Class
}

// NewClassStore builds an empty class store.
func NewClassStore() *ClassStore {
	return &ClassStore{items: make(map[string]*models.Class)}
}

func cloneClass(c *models.Class) *models.Class {
	out := *c
	out.Students = cloneStrings(c.Students)
	if c.InactivityPolicy.UpdatedAt != nil {
		t := *c.InactivityPolicy.UpdatedAt
		out.InactivityPolicy.UpdatedAt = &t
	}
	out.InactivityPolicy.UpdatedBy = cloneString(c.InactivityPolicy.UpdatedBy)
	return &out
}

// Create stores class. Duplicate ids are rejected.
func (s *ClassStore) Create(ctx context.Context, class *models.Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[class.ID]; exists {
		return repository.ErrConflict
	}
	s.items[class.ID] = cloneClass(class)
	s.order = append(s.order, class.ID)
	return nil
}

// FindByID returns a copy of the class.
func (s *ClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	class, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneClass(class), nil
}

// List pages through classes matching filter.
func (s *ClassStore) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	matched, err := s.filter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
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

// ListByStudent returns all classes enrolling studentID.
func (s *ClassStore) ListByStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	return s.filter(ctx, models.ClassFilter{StudentID: studentID})
}

func (s *ClassStore) filter(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Class{}
	for _, id := range s.order {
		class := s.items[id]
		if filter.OwnerID != "" && class.OwnerID != filter.OwnerID {
			continue
		}
		if filter.StudentID != "" && !class.HasStudent(filter.StudentID) {
			continue
		}
		out = append(out, *cloneClass(class))
	}
	return out, nil
}

// Update replaces mutable attributes. Owner, roster and creation time are kept.
func (s *ClassStore) Update(ctx context.Context, class *models.Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[class.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := cloneClass(class)
	next.OwnerID = current.OwnerID
	next.Students = current.Students
	next.CreatedAt = current.CreatedAt
	s.items[class.ID] = next
	return nil
}

// AddStudents appends the ids not yet on the roster.
func (s *ClassStore) AddStudents(ctx context.Context, classID string, studentIDs []string) ([]string, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.items[classID]
	if !ok {
		return nil, 0, repository.ErrNotFound
	}
	added := []string{}
	for _, id := range studentIDs {
		if class.HasStudent(id) {
			continue
		}
		class.Students = append(class.Students, id)
		added = append(added, id)
	}
	if len(added) > 0 {
		class.UpdatedAt = time.Now().UTC()
	}
	return added, len(class.Students), nil
}

// RemoveStudent drops studentID from the roster, reporting whether it was enrolled.
func (s *ClassStore) RemoveStudent(ctx context.Context, classID, studentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.items[classID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for i, id := range class.Students {
		if id == studentID {
			class.Students = append(class.Students[:i:i], class.Students[i+1:]...)
			class.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}
