package firestoredb

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// newEmulatorClient connects to the emulator named by FIRESTORE_EMULATOR_HOST.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "csi-attendance-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAttendanceInsertIfAbsentEmulator(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStore(newEmulatorClient(t))
	sessionID := "sess_" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, created, err := store.InsertIfAbsent(ctx, &models.Attendance{
		SessionID: sessionID, StudentID: "S1", ClassID: "cls_1",
		Status: models.AttendanceStatusPresent, Source: models.AttendanceSourceCheckIn,
		RecordedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AttendanceStatusPresent, first.Status)

	again, created, err := store.InsertIfAbsent(ctx, &models.Attendance{
		SessionID: sessionID, StudentID: "S1", ClassID: "cls_1",
		Status: models.AttendanceStatusLate, Source: models.AttendanceSourceCheckIn,
		RecordedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.AttendanceStatusPresent, again.Status)
	assert.True(t, again.RecordedAt.Equal(now))
}

func TestAttendanceUpsertKeepsFirstRecordedAtEmulator(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStore(newEmulatorClient(t))
	sessionID := "sess_" + uuid.NewString()
	first := time.Now().UTC().Truncate(time.Millisecond)
	later := first.Add(10 * time.Minute)

	_, err := store.Upsert(ctx, &models.Attendance{
		SessionID: sessionID, StudentID: "S1", ClassID: "cls_1",
		Status: models.AttendanceStatusLate, Source: models.AttendanceSourceManual,
		RecordedAt: first, UpdatedAt: first,
	})
	require.NoError(t, err)

	updated, err := store.Upsert(ctx, &models.Attendance{
		SessionID: sessionID, StudentID: "S1", ClassID: "cls_1",
		Status: models.AttendanceStatusExcused, Source: models.AttendanceSourceManual,
		RecordedAt: later, UpdatedAt: later,
	})
	require.NoError(t, err)
	assert.True(t, updated.RecordedAt.Equal(first))

	stored, err := store.Find(ctx, sessionID, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusExcused, stored.Status)
	assert.True(t, stored.RecordedAt.Equal(first))
	assert.True(t, stored.UpdatedAt.Equal(later))
}

func TestSessionCompleteActiveEmulator(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newEmulatorClient(t))
	classID := "cls_" + uuid.NewString()
	start := time.Now().UTC().Truncate(time.Millisecond)

	active := func(id string) *models.Session {
		return &models.Session{
			ID: id, ClassID: classID, OwnerID: "P1", Name: id,
			StartTime: start, Status: models.SessionStatusActive,
			DurationMinutesPlanned: models.DefaultSessionMinutes,
		}
	}

	require.NoError(t, store.Create(ctx, active("sess_a_"+classID)))
	err := store.Create(ctx, active("sess_b_"+classID))
	require.ErrorIs(t, err, repository.ErrConflict)

	completed, err := store.CompleteActive(ctx, classID, start.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, models.SessionStatusCompleted, completed[0].Status)
	require.NotNil(t, completed[0].EndTime)
	assert.True(t, completed[0].EndTime.Equal(start))

	require.NoError(t, store.Create(ctx, active("sess_b_"+classID)))
	sessions, err := store.List(ctx, models.SessionFilter{ClassID: classID, Status: models.SessionStatusActive})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess_b_"+classID, sessions[0].ID)

	again, err := store.CompleteActive(ctx, classID, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, again, 1)
	again, err = store.CompleteActive(ctx, classID, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)
}
