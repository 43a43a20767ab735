package memory

import (
	"context"
	"sync"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

type attendanceKey struct {
	sessionID string
	studentID string
}

// AttendanceStore keeps at most one record per (session, student).
type AttendanceStore struct {
	mu    sync.RWMutex
	order []attendanceKey
	items map[attendanceKey]*models.Attendance
}

// NewAttendanceStore builds an empty attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{items: make(map[attendanceKey]*models.Attendance)}
}

func cloneAttendance(a *models.Attendance) *models.Attendance {
	out := *a
	out.Reason = cloneString(a.Reason)
	out.UpdatedBy = cloneString(a.UpdatedBy)
	return &out
}

// Find returns the record for a session and student.
func (s *AttendanceStore) Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.items[attendanceKey{sessionID, studentID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttendance(record), nil
}

// List returns records matching filter in first-recorded order.
func (s *AttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sessions := make(map[string]struct{}, len(filter.SessionIDs))
	for _, id := range filter.SessionIDs {
		sessions[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Attendance{}
	for _, key := range s.order {
		if filter.SessionID != "" && key.sessionID != filter.SessionID {
			continue
		}
		if len(sessions) > 0 {
			if _, ok := sessions[key.sessionID]; !ok {
				continue
			}
		}
		if filter.StudentID != "" && key.studentID != filter.StudentID {
			continue
		}
		out = append(out, *cloneAttendance(s.items[key]))
	}
	return out, nil
}

// InsertIfAbsent stores record only when the key is free.
func (s *AttendanceStore) InsertIfAbsent(ctx context.Context, record *models.Attendance) (*models.Attendance, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	key := attendanceKey{record.SessionID, record.StudentID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return cloneAttendance(existing), false, nil
	}
	s.items[key] = cloneAttendance(record)
	s.order = append(s.order, key)
	return cloneAttendance(record), true, nil
}

// Upsert overwrites status, reason, source and audit fields, keeping the original recordedAt.
func (s *AttendanceStore) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := attendanceKey{record.SessionID, record.StudentID}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneAttendance(record)
	if existing, ok := s.items[key]; ok {
		next.RecordedAt = existing.RecordedAt
	} else {
		s.order = append(s.order, key)
	}
	s.items[key] = next
	return cloneAttendance(next), nil
}
