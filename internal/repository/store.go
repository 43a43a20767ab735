package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

// ErrNotFound is returned by every backend when a lookup misses.
var ErrNotFound = sql.ErrNoRows

// ErrConflict reports a write rejected by a uniqueness constraint.
var ErrConflict = errors.New("conflicting record")

// Page bounds shared by list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClassStore persists classes and their rosters.
type ClassStore interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Class, error)
	Update(ctx context.Context, class *models.Class) error
	AddStudents(ctx context.Context, classID string, studentIDs []string) ([]string, int, error)
	RemoveStudent(ctx context.Context, classID, studentID string) (bool, error)
}

// SessionStore persists attendance sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	Complete(ctx context.Context, id string, endTime time.Time) (*models.Session, error)
	CompleteActive(ctx context.Context, classID string, endTime time.Time) ([]models.Session, error)
}

// AttendanceStore persists attendance records keyed by (session, student).
type AttendanceStore interface {
	Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
	InsertIfAbsent(ctx context.Context, record *models.Attendance) (*models.Attendance, bool, error)
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
}

// NotificationStore persists delivered notifications.
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListByRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) (*models.Notification, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Driver        string
	Classes       ClassStore
	Sessions      SessionStore
	Attendance    AttendanceStore
	Notifications NotificationStore

	ping  func(context.Context) error
	close func() error
}

// NewStore assembles a Store. ping and closer may be nil.
func NewStore(driver string, classes ClassStore, sessions SessionStore, attendance AttendanceStore, notifications NotificationStore, ping func(context.Context) error, closer func() error) Store {
	return Store{
		Driver:        driver,
		Classes:       classes,
		Sessions:      sessions,
		Attendance:    attendance,
		Notifications: notifications,
		ping:          ping,
		close:         closer,
	}
}

// Ping checks backend reachability.
func (s Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases backend resources.
func (s Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Pagination normalises page and size the way every backend applies them.
func Pagination(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, size
}
