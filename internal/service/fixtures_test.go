package service

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
	"github.com/noah-isme/csi-attendance-api/internal/repository/memory"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

var enforced = AttendanceOptions{EnforceOwnership: true, EnforceRoster: true}

type fixture struct {
	store      repository.Store
	cache      *CacheService
	cacheRepo  *mapCacheRepo
	classes    *ClassService
	sessions   *SessionService
	attendance *AttendanceService
	stats      *StatisticsService
}

func newFixture(t *testing.T, opts AttendanceOptions) *fixture {
	t.Helper()
	store := memory.NewStore()
	cacheRepo := newMapCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	return &fixture{
		store:      store,
		cache:      cache,
		cacheRepo:  cacheRepo,
		classes:    NewClassService(store.Classes, cache, nil, nil),
		sessions:   NewSessionService(store.Classes, store.Sessions, store.Attendance, cache, nil, nil, opts, nil, nil),
		attendance: NewAttendanceService(store.Sessions, store.Classes, store.Attendance, cache, nil, opts, nil, nil),
		stats:      NewStatisticsService(store.Classes, store.Sessions, store.Attendance, cache, time.Minute, nil),
	}
}

func (f *fixture) seedClass(t *testing.T, ownerID string, students ...string) *models.Class {
	t.Helper()
	class, err := f.classes.Create(context.Background(), CreateClassRequest{
		Name:     "CSI Lab",
		OwnerID:  ownerID,
		Schedule: "Mon 09:00",
		Students: students,
	})
	require.NoError(t, err)
	return class
}

func (f *fixture) start(t *testing.T, classID, issuerID string) *models.Session {
	t.Helper()
	session, err := f.sessions.StartSession(context.Background(), StartSessionRequest{ClassID: classID, IssuerID: issuerID})
	require.NoError(t, err)
	return session
}

// seedSession stores a completed session starting at start, bypassing the lifecycle.
func (f *fixture) seedSession(t *testing.T, classID, ownerID string, start time.Time) *models.Session {
	t.Helper()
	end := start.Add(time.Hour)
	session := &models.Session{
		ID:                     newID(sessionIDPrefix),
		ClassID:                classID,
		OwnerID:                ownerID,
		Name:                   "seeded",
		StartTime:              start,
		EndTime:                &end,
		Status:                 models.SessionStatusCompleted,
		DurationMinutesPlanned: models.DefaultSessionMinutes,
	}
	require.NoError(t, f.store.Sessions.Create(context.Background(), session))
	return session
}

func (f *fixture) setStatus(t *testing.T, sessionID, studentID string, status models.AttendanceStatus, issuerID string) {
	t.Helper()
	_, err := f.attendance.SetStatus(context.Background(), sessionID, studentID, SetStatusRequest{Status: string(status), IssuerID: issuerID})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want.Code, appErrors.FromError(err).Code, err.Error())
}

// mapCacheRepo is an in-process CacheRepository storing JSON like redis does.
type mapCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{items: map[string][]byte{}}
}

func (m *mapCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *mapCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	return nil
}

func (m *mapCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *mapCacheRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
