package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

var january = models.DateRange{
	Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
}

func day(d, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func TestClassStatsZeroSessions(t *testing.T) {
	f := newFixture(t, enforced)
	class := f.seedClass(t, "P1", "S1", "S2")

	stats, err := f.stats.ClassAttendanceStats(context.Background(), class.ID, january)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSessions)
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 0.0, stats.AverageAttendanceRate)
	assert.Equal(t, 0.0, stats.PooledAttendanceRate)
	assert.Empty(t, stats.AttendanceByDate)
	for _, student := range stats.StudentStats {
		assert.Equal(t, 0.0, student.AttendanceRate)
	}
}

func TestClassStatsZeroStudents(t *testing.T) {
	f := newFixture(t, enforced)
	class := f.seedClass(t, "P1")
	f.seedSession(t, class.ID, "P1", day(3, 9))

	stats, err := f.stats.ClassAttendanceStats(context.Background(), class.ID, january)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 0.0, stats.AverageAttendanceRate)
	assert.Equal(t, 0.0, stats.PooledAttendanceRate)
}

func TestClassStatsImplicitAbsentScenario(t *testing.T) {
	f := newFixture(t, enforced)
	class := f.seedClass(t, "P1", "S1", "S2")
	session := f.start(t, class.ID, "P1")
	f.setStatus(t, session.ID, "S1", models.AttendanceStatusPresent, "P1")

	stats, err := f.stats.ClassAttendanceStats(context.Background(), class.ID, models.DateRange{})
	require.NoError(t, err)

	require.Len(t, stats.StudentStats, 2)
	assert.Equal(t, "S1", stats.StudentStats[0].StudentID)
	assert.Equal(t, 100.0, stats.StudentStats[0].AttendanceRate)
	assert.Equal(t, "S2", stats.StudentStats[1].StudentID)
	assert.Equal(t, 0.0, stats.StudentStats[1].AttendanceRate)
	assert.Equal(t, 1, stats.StudentStats[1].Counts.Absent)
	assert.Equal(t, 50.0, stats.AverageAttendanceRate)
	assert.Equal(t, 50.0, stats.PooledAttendanceRate)
}

func TestClassStatsFormulas(t *testing.T) {
	f := newFixture(t, enforced)
	class := f.seedClass(t, "P1", "S1", "S2", "S3")
	s1 := f.seedSession(t, class.ID, "P1", day(2, 9))
	s2 := f.seedSession(t, class.ID, "P1", day(2, 14))
	s3 := f.seedSession(t, class.ID, "P1", day(9, 9))
	f.seedSession(t, class.ID, "P1", time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))

	// S1 attends everything, S2 is late once and excused once, S3 never shows up.
	for _, s := range []*models.Session{s1, s2, s3} {
		f.setStatus(t, s.ID, "S1", models.AttendanceStatusPresent, "P1")
	}
	f.setStatus(t, s1.ID, "S2", models.AttendanceStatusLate, "P1")
	f.setStatus(t, s2.ID, "S2", models.AttendanceStatusExcused, "P1")
	f.setStatus(t, s3.ID, "S3", models.AttendanceStatusAbsent, "P1")

	stats, err := f.stats.ClassAttendanceStats(context.Background(), class.ID, january)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 100.0, stats.StudentStats[0].AttendanceRate)
	assert.Equal(t, 66.7, stats.StudentStats[1].AttendanceRate)
	assert.Equal(t, 0.0, stats.StudentStats[2].AttendanceRate)
	// mean(100, 66.7, 0) = 55.57
	assert.Equal(t, 55.6, stats.AverageAttendanceRate)
	// (3 present + 1 late) / 9
	assert.Equal(t, 44.0, stats.PooledAttendanceRate)

	assert.Equal(t, models.StatusCounts{Present: 3, Late: 1, Absent: 4, Excused: 1}, stats.AttendanceByStatus)
	require.Len(t, stats.AttendanceByDate, 2)
	assert.Equal(t, "2024-01-02", stats.AttendanceByDate[0].Date)
	assert.Equal(t, 2, stats.AttendanceByDate[0].Sessions)
	assert.Equal(t, 3, stats.AttendanceByDate[0].RosterSize)
	assert.Equal(t, 6, stats.AttendanceByDate[0].Counts.Total())
	assert.Equal(t, "2024-01-09", stats.AttendanceByDate[1].Date)
}

func TestClassStatsErrors(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()

	_, err := f.stats.ClassAttendanceStats(ctx, "cls_missing", january)
	requireCode(t, err, appErrors.ErrNotFound)

	class := f.seedClass(t, "P1")
	_, err = f.stats.ClassAttendanceStats(ctx, class.ID, models.DateRange{Start: january.End, End: january.Start})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestStudentStatsWholePercent(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	a := f.seedClass(t, "P1", "S1")
	b := f.seedClass(t, "P2", "S1", "S2")
	f.seedClass(t, "P3", "S2")

	a1 := f.seedSession(t, a.ID, "P1", day(4, 9))
	a2 := f.seedSession(t, a.ID, "P1", day(5, 9))
	a3 := f.seedSession(t, a.ID, "P1", day(6, 9))
	b1 := f.seedSession(t, b.ID, "P2", day(4, 13))

	f.setStatus(t, a1.ID, "S1", models.AttendanceStatusPresent, "P1")
	f.setStatus(t, a2.ID, "S1", models.AttendanceStatusExcused, "P1")
	f.setStatus(t, a3.ID, "S1", models.AttendanceStatusLate, "P1")
	f.setStatus(t, b1.ID, "S1", models.AttendanceStatusExcused, "P2")

	stats, err := f.stats.StudentAttendanceStats(ctx, "S1", nil, january)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalSessions)
	// (1 present + 1 late) / 4; excused does not count here.
	assert.Equal(t, 50.0, stats.AttendanceRate)
	require.Len(t, stats.Classes, 2)
	assert.Equal(t, a.ID, stats.Classes[0].ClassID)
	assert.Equal(t, 67.0, stats.Classes[0].AttendanceRate)
	assert.Equal(t, 0.0, stats.Classes[1].AttendanceRate)

	only, err := f.stats.StudentAttendanceStats(ctx, "S1", []string{b.ID}, january)
	require.NoError(t, err)
	assert.Equal(t, 1, only.TotalSessions)
}

func TestStudentStatsErrors(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()

	_, err := f.stats.StudentAttendanceStats(ctx, "S1", nil, january)
	requireCode(t, err, appErrors.ErrNotFound)

	_, err = f.stats.StudentAttendanceStats(ctx, "S1", []string{"cls_missing"}, january)
	requireCode(t, err, appErrors.ErrNotFound)

	_, err = f.stats.StudentAttendanceStats(ctx, "", nil, january)
	requireCode(t, err, appErrors.ErrValidation)

	class := f.seedClass(t, "P1", "S1")
	stats, err := f.stats.StudentAttendanceStats(ctx, "S1", []string{class.ID}, january)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.AttendanceRate)
}

func TestClassStatsCacheInvalidatedByAttendance(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	stats, err := f.stats.ClassAttendanceStats(ctx, class.ID, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.AverageAttendanceRate)
	assert.Equal(t, 1, f.cacheRepo.len())

	f.setStatus(t, session.ID, "S1", models.AttendanceStatusPresent, "P1")
	assert.Equal(t, 0, f.cacheRepo.len())

	stats, err = f.stats.ClassAttendanceStats(ctx, class.ID, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.AverageAttendanceRate)

	cached, err := f.stats.ClassAttendanceStats(ctx, class.ID, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, stats.AverageAttendanceRate, cached.AverageAttendanceRate)
	assert.Equal(t, stats.StudentStats, cached.StudentStats)
}
