package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

func TestCheckInCreatesPresentOnce(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	record, created, err := f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.Equal(t, models.AttendanceSourceCheckIn, record.Source)
	assert.Equal(t, class.ID, record.ClassID)

	again, created, err := f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S1", ClassID: class.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, record.RecordedAt.Equal(again.RecordedAt))
}

func TestCheckInNeverDowngradesManualStatus(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	_, _, err := f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S1"})
	require.NoError(t, err)
	f.setStatus(t, session.ID, "S1", models.AttendanceStatusExcused, "P1")
	record, created, err := f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S1"})
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, models.AttendanceStatusExcused, record.Status)
	view, err := f.attendance.GetStatus(ctx, session.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusExcused, view.Status)
}

func TestCheckInErrors(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	_, _, err := f.attendance.CheckIn(ctx, "sess_missing", CheckInRequest{StudentID: "S1"})
	requireCode(t, err, appErrors.ErrNotFound)

	_, _, err = f.attendance.CheckIn(ctx, session.ID, CheckInRequest{})
	requireCode(t, err, appErrors.ErrValidation)

	_, _, err = f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S1", ClassID: "cls_other"})
	requireCode(t, err, appErrors.ErrValidation)

	_, _, err = f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S9"})
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestCheckInWithoutRosterEnforcement(t *testing.T) {
	f := newFixture(t, AttendanceOptions{EnforceOwnership: true})
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	_, created, err := f.attendance.CheckIn(context.Background(), session.ID, CheckInRequest{StudentID: "S9"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSetStatusOverwritesAndStampsIssuer(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	first, _, err := f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: "S1"})
	require.NoError(t, err)

	reason := "doctor appointment"
	record, err := f.attendance.SetStatus(ctx, session.ID, "S1", SetStatusRequest{Status: "excused", IssuerID: "P1", Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusExcused, record.Status)
	assert.Equal(t, models.AttendanceSourceManual, record.Source)
	require.NotNil(t, record.UpdatedBy)
	assert.Equal(t, "P1", *record.UpdatedBy)
	require.NotNil(t, record.Reason)
	assert.Equal(t, reason, *record.Reason)
	assert.True(t, first.RecordedAt.Equal(record.RecordedAt))

	record, err = f.attendance.SetStatus(ctx, session.ID, "S1", SetStatusRequest{Status: "late", IssuerID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
	assert.Nil(t, record.Reason)
}

func TestSetStatusRejectsUnknownStatusWithoutMutation(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")
	f.setStatus(t, session.ID, "S1", models.AttendanceStatusLate, "P1")

	_, err := f.attendance.SetStatus(ctx, session.ID, "S1", SetStatusRequest{Status: "unknown", IssuerID: "P1"})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = f.attendance.SetStatus(ctx, "sess_missing", "S1", SetStatusRequest{Status: "unknown", IssuerID: "P1"})
	requireCode(t, err, appErrors.ErrValidation)

	record, err := f.store.Attendance.Find(ctx, session.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
}

func TestSetStatusByNonOwnerLeavesRecordUnchanged(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")
	f.setStatus(t, session.ID, "S1", models.AttendanceStatusPresent, "P1")

	_, err := f.attendance.SetStatus(ctx, session.ID, "S1", SetStatusRequest{Status: "absent", IssuerID: "P2"})
	requireCode(t, err, appErrors.ErrForbidden)

	record, err := f.store.Attendance.Find(ctx, session.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	require.NotNil(t, record.UpdatedBy)
	assert.Equal(t, "P1", *record.UpdatedBy)
}

func TestSetStatusSessionNotFound(t *testing.T) {
	f := newFixture(t, enforced)
	_, err := f.attendance.SetStatus(context.Background(), "sess_missing", "S1", SetStatusRequest{Status: "present", IssuerID: "P1"})
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestAttendanceAtMostOneRecordPerKey(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1", "S2")
	session := f.start(t, class.ID, "P1")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			student := fmt.Sprintf("S%d", i%2+1)
			if i%3 == 0 {
				_, _, _ = f.attendance.CheckIn(ctx, session.ID, CheckInRequest{StudentID: student})
				return
			}
			status := models.AttendanceStatuses[i%len(models.AttendanceStatuses)]
			_, _ = f.attendance.SetStatus(ctx, session.ID, student, SetStatusRequest{Status: string(status), IssuerID: "P1"})
		}(i)
	}
	wg.Wait()

	records, err := f.store.Attendance.List(ctx, models.AttendanceFilter{SessionID: session.ID})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetStatusImplicitAbsent(t *testing.T) {
	f := newFixture(t, enforced)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1")
	session := f.start(t, class.ID, "P1")

	view, err := f.attendance.GetStatus(ctx, session.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, view.Status)
	assert.False(t, view.Recorded)
	assert.Nil(t, view.Record)

	_, err = f.attendance.GetStatus(ctx, "sess_missing", "S1")
	requireCode(t, err, appErrors.ErrNotFound)
}
