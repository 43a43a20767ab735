package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

func TestClassStoreRoster(t *testing.T) {
	ctx := context.Background()
	store := NewClassStore()
	require.NoError(t, store.Create(ctx, &models.Class{ID: "cls_1", OwnerID: "t1", Students: []string{"s1"}}))
	require.ErrorIs(t, store.Create(ctx, &models.Class{ID: "cls_1"}), repository.ErrConflict)

	added, total, err := store.AddStudents(ctx, "cls_1", []string{"s1", "s2", "s3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s3"}, added)
	assert.Equal(t, 3, total)

	removed, err := store.RemoveStudent(ctx, "cls_1", "s2")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.RemoveStudent(ctx, "cls_1", "s2")
	require.NoError(t, err)
	assert.False(t, removed)

	class, err := store.FindByID(ctx, "cls_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, class.Students)

	class.Students[0] = "mutated"
	again, err := store.FindByID(ctx, "cls_1")
	require.NoError(t, err)
	assert.Equal(t, "s1", again.Students[0])

	_, _, err = store.AddStudents(ctx, "missing", []string{"x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClassStoreUpdateKeepsOwner(t *testing.T) {
	ctx := context.Background()
	store := NewClassStore()
	require.NoError(t, store.Create(ctx, &models.Class{ID: "cls_1", Name: "A", OwnerID: "t1", Students: []string{"s1"}}))

	require.NoError(t, store.Update(ctx, &models.Class{ID: "cls_1", Name: "B", OwnerID: "intruder"}))
	class, err := store.FindByID(ctx, "cls_1")
	require.NoError(t, err)
	assert.Equal(t, "B", class.Name)
	assert.Equal(t, "t1", class.OwnerID)
	assert.Equal(t, []string{"s1"}, class.Students)
}

func TestClassStoreListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewClassStore()
	for i := 0; i < 25; i++ {
		owner := "t1"
		if i%5 == 0 {
			owner = "t2"
		}
		require.NoError(t, store.Create(ctx, &models.Class{ID: fmt.Sprintf("cls_%02d", i), OwnerID: owner, Students: []string{fmt.Sprintf("s%d", i%3)}}))
	}

	page, total, err := store.List(ctx, models.ClassFilter{OwnerID: "t1", Page: 1, PageSize: 15})
	require.NoError(t, err)
	assert.Equal(t, 20, total)
	assert.Len(t, page, 15)
	assert.Equal(t, "cls_01", page[0].ID)

	page, _, err = store.List(ctx, models.ClassFilter{OwnerID: "t1", Page: 3, PageSize: 15})
	require.NoError(t, err)
	assert.Empty(t, page)

	byStudent, err := store.ListByStudent(ctx, "s0")
	require.NoError(t, err)
	assert.Len(t, byStudent, 9)
}

func TestSessionStoreOneActivePerClass(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	start := time.Now().UTC()
	require.NoError(t, store.Create(ctx, &models.Session{ID: "a", ClassID: "c", StartTime: start, Status: models.SessionStatusActive}))
	assert.ErrorIs(t, store.Create(ctx, &models.Session{ID: "b", ClassID: "c", StartTime: start, Status: models.SessionStatusActive}), repository.ErrConflict)

	completed, err := store.CompleteActive(ctx, "c", start.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].EndTime)
	assert.False(t, completed[0].EndTime.Before(completed[0].StartTime))

	require.NoError(t, store.Create(ctx, &models.Session{ID: "b", ClassID: "c", StartTime: start.Add(time.Minute), Status: models.SessionStatusActive}))

	active, err := store.List(ctx, models.SessionFilter{ClassID: "c", Status: models.SessionStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].ID)
}

func TestSessionStoreCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	start := time.Now().UTC()
	require.NoError(t, store.Create(ctx, &models.Session{ID: "a", ClassID: "c", StartTime: start, Status: models.SessionStatusActive}))

	first, err := store.Complete(ctx, "a", start.Add(time.Minute))
	require.NoError(t, err)
	second, err := store.Complete(ctx, "a", start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, first.EndTime.Equal(*second.EndTime))

	_, err = store.Complete(ctx, "missing", start)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionStoreListRange(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"late", "early", "mid"} {
		offset := []int{10, 1, 5}[i]
		require.NoError(t, store.Create(ctx, &models.Session{ID: id, ClassID: "c", StartTime: base.AddDate(0, 0, offset), Status: models.SessionStatusCompleted}))
	}
	from := base
	to := base.AddDate(0, 0, 6)

	sessions, err := store.List(ctx, models.SessionFilter{ClassIDs: []string{"c"}, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "early", sessions[0].ID)
	assert.Equal(t, "mid", sessions[1].ID)
}

func TestAttendanceStoreInsertAndUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStore()
	first := time.Now().UTC()

	rec, created, err := store.InsertIfAbsent(ctx, &models.Attendance{SessionID: "s", StudentID: "u", Status: models.AttendanceStatusPresent, RecordedAt: first})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)

	reason := "doctor"
	updated, err := store.Upsert(ctx, &models.Attendance{SessionID: "s", StudentID: "u", Status: models.AttendanceStatusExcused, Reason: &reason, RecordedAt: first.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusExcused, updated.Status)
	assert.True(t, updated.RecordedAt.Equal(first))

	rec, created, err = store.InsertIfAbsent(ctx, &models.Attendance{SessionID: "s", StudentID: "u", Status: models.AttendanceStatusPresent})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.AttendanceStatusExcused, rec.Status)

	all, err := store.List(ctx, models.AttendanceFilter{SessionIDs: []string{"s"}})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = store.Find(ctx, "s", "other")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAttendanceStoreConcurrentInsertKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	store := NewAttendanceStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.InsertIfAbsent(ctx, &models.Attendance{SessionID: "s", StudentID: "u", Status: models.AttendanceStatusPresent})
			if err == nil && created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	all, err := store.List(ctx, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationStoreNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewNotificationStore()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, &models.Notification{ID: fmt.Sprintf("n%d", i), RecipientID: "u", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, store.Create(ctx, &models.Notification{ID: "other", RecipientID: "v", CreatedAt: base}))

	items, total, err := store.ListByRecipient(ctx, models.NotificationFilter{RecipientID: "u", PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "n2", items[0].ID)
	assert.Equal(t, "n1", items[1].ID)

	read, err := store.MarkRead(ctx, "n0", base)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	again, err := store.MarkRead(ctx, "n0", base.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, again.ReadAt.Equal(base))
}

func TestStoreBundle(t *testing.T) {
	store := NewStore()
	assert.Equal(t, "memory", store.Driver)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close())
}
