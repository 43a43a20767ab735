package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// SessionStore keeps sessions in insertion order and enforces one active session per class.
type SessionStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]*models.Session
}

// NewSessionStore builds an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{items: make(map[string]*models.Session)}
}

func cloneSession(s *models.Session) *models.Session {
	out := *s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	return &out
}

// Create stores session. A second active session for a class is rejected.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[session.ID]; exists {
		return repository.ErrConflict
	}
	if session.Active() {
		for _, existing := range s.items {
			if existing.ClassID == session.ClassID && existing.Active() {
				return repository.ErrConflict
			}
		}
	}
	s.items[session.ID] = cloneSession(session)
	s.order = append(s.order, session.ID)
	return nil
}

// FindByID returns a copy of the session.
func (s *SessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(session), nil
}

// List returns sessions matching filter ordered by start time, ties in insertion order.
func (s *SessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	classIDs := make(map[string]struct{}, len(filter.ClassIDs))
	for _, id := range filter.ClassIDs {
		classIDs[id] = struct{}{}
	}

	s.mu.RLock()
	out := []models.Session{}
	for _, id := range s.order {
		session := s.items[id]
		if filter.ClassID != "" && session.ClassID != filter.ClassID {
			continue
		}
		if len(classIDs) > 0 {
			if _, ok := classIDs[session.ClassID]; !ok {
				continue
			}
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		if filter.From != nil && session.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && session.StartTime.After(*filter.To) {
			continue
		}
		out = append(out, *cloneSession(session))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// Complete transitions an active session. Completed sessions are returned unchanged.
func (s *SessionStore) Complete(ctx context.Context, id string, endTime time.Time) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if session.Active() {
		complete(session, endTime)
	}
	return cloneSession(session), nil
}

// CompleteActive completes every active session of classID.
func (s *SessionStore) CompleteActive(ctx context.Context, classID string, endTime time.Time) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	completed := []models.Session{}
	for _, id := range s.order {
		session := s.items[id]
		if session.ClassID != classID || !session.Active() {
			continue
		}
		complete(session, endTime)
		completed = append(completed, *cloneSession(session))
	}
	return completed, nil
}

func complete(session *models.Session, endTime time.Time) {
	if endTime.Before(session.StartTime) {
		endTime = session.StartTime
	}
	session.Status = models.SessionStatusCompleted
	session.EndTime = &endTime
}
