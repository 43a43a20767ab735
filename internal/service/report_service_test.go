package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

func newReportFixture(t *testing.T) (*fixture, *ReportService, *models.Class) {
	t.Helper()
	f := newFixture(t, enforced)
	class := f.seedClass(t, "P1", "S1", "S2")
	session := f.seedSession(t, class.ID, "P1", day(8, 9))
	f.setStatus(t, session.ID, "S1", models.AttendanceStatusLate, "P1")
	return f, NewReportService(f.stats, nil, nil), class
}

func TestClassReportCSV(t *testing.T) {
	_, reports, class := newReportFixture(t)

	report, err := reports.ClassReport(context.Background(), class.ID, january, "CSV")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatCSV, report.Format)
	assert.Equal(t, "text/csv", report.ContentType)
	assert.True(t, strings.HasSuffix(report.Filename, ".csv"))

	reader := csv.NewReader(bytes.NewReader(report.Body))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	var header []string
	for i, row := range rows {
		if len(row) > 0 && row[0] == "student_id" {
			header = row
			rows = rows[i+1:]
			break
		}
	}
	require.Equal(t, []string{"student_id", "attendance_rate", "present", "late", "absent", "excused"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"S1", "100", "0", "1", "0", "0"}, rows[0])
	assert.Equal(t, []string{"S2", "0", "0", "0", "1", "0"}, rows[1])
}

func TestStudentReportPDF(t *testing.T) {
	_, reports, _ := newReportFixture(t)

	report, err := reports.StudentReport(context.Background(), "S1", nil, january, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, bytes.HasPrefix(report.Body, []byte("%PDF")))
	assert.Contains(t, report.Filename, "student_S1")
}

func TestReportJSONDefault(t *testing.T) {
	_, reports, class := newReportFixture(t)

	report, err := reports.ClassReport(context.Background(), class.ID, january, "")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatJSON, report.Format)
	stats, ok := report.Data.(*models.ClassStats)
	require.True(t, ok)
	assert.Equal(t, 50.0, stats.AverageAttendanceRate)
	assert.Nil(t, report.Body)
}

func TestReportErrors(t *testing.T) {
	_, reports, class := newReportFixture(t)
	ctx := context.Background()

	_, err := reports.ClassReport(ctx, class.ID, january, "xlsx")
	requireCode(t, err, appErrors.ErrValidation)

	_, err = reports.ClassReport(ctx, "cls_missing", january, "csv")
	requireCode(t, err, appErrors.ErrNotFound)

	_, err = reports.StudentReport(ctx, "S404", nil, january, "csv")
	requireCode(t, err, appErrors.ErrNotFound)
}
