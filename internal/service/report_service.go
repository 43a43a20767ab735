package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
	"github.com/noah-isme/csi-attendance-api/pkg/export"
)

// ReportFormat enumerates supported report encodings.
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// Valid reports whether the format is supported. Empty means JSON.
func (f ReportFormat) Valid() bool {
	switch f {
	case "", ReportFormatJSON, ReportFormatCSV, ReportFormatPDF:
		return true
	default:
		return false
	}
}

type classStatsProvider interface {
	ClassAttendanceStats(ctx context.Context, classID string, rng models.DateRange) (*models.ClassStats, error)
	StudentAttendanceStats(ctx context.Context, studentID string, classIDs []string, rng models.DateRange) (*models.StudentStats, error)
}

// ReportRequest selects the output encoding of a report.
type ReportRequest struct {
	Format string `validate:"omitempty,report_format"`
}

// Report is a rendered statistics report. Data is set for JSON, Body for file formats.
type Report struct {
	Format      ReportFormat
	Data        interface{}
	Body        []byte
	ContentType string
	Filename    string
}

// ReportService renders attendance statistics as downloadable documents.
type ReportService struct {
	stats     classStatsProvider
	renderers map[ReportFormat]export.Renderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs ReportService with CSV and PDF renderers.
func NewReportService(stats classStatsProvider, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		stats: stats,
		renderers: map[ReportFormat]export.Renderer{
			ReportFormatCSV: export.NewCSVExporter(),
			ReportFormatPDF: export.NewPDFExporter(),
		},
		validator: newValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ClassReport renders class attendance statistics.
func (s *ReportService) ClassReport(ctx context.Context, classID string, rng models.DateRange, format string) (*Report, error) {
	f, err := s.format(format)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.ClassAttendanceStats(ctx, classID, rng)
	if err != nil {
		return nil, err
	}
	if f == ReportFormatJSON {
		return &Report{Format: f, Data: stats}, nil
	}

	dataset := export.Dataset{
		Title: fmt.Sprintf("Attendance report - %s", stats.ClassName),
		Summary: []export.Field{
			{Label: "Class", Value: stats.ClassID},
			{Label: "Period", Value: formatRange(stats.Range)},
			{Label: "Sessions", Value: strconv.Itoa(stats.TotalSessions)},
			{Label: "Students", Value: strconv.Itoa(stats.TotalStudents)},
			{Label: "Average attendance rate", Value: formatRate(stats.AverageAttendanceRate)},
			{Label: "Pooled attendance rate", Value: formatRate(stats.PooledAttendanceRate)},
		},
		Headers: []string{"student_id", "attendance_rate", "present", "late", "absent", "excused"},
	}
	for _, student := range stats.StudentStats {
		row := countsRow(student.Counts)
		row["student_id"] = student.StudentID
		row["attendance_rate"] = formatRate(student.AttendanceRate)
		dataset.Rows = append(dataset.Rows, row)
	}
	return s.render(f, dataset, "class_"+stats.ClassID)
}

// StudentReport renders a student's attendance across classes.
func (s *ReportService) StudentReport(ctx context.Context, studentID string, classIDs []string, rng models.DateRange, format string) (*Report, error) {
	f, err := s.format(format)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.StudentAttendanceStats(ctx, studentID, classIDs, rng)
	if err != nil {
		return nil, err
	}
	if f == ReportFormatJSON {
		return &Report{Format: f, Data: stats}, nil
	}

	dataset := export.Dataset{
		Title: fmt.Sprintf("Attendance report - %s", stats.StudentID),
		Summary: []export.Field{
			{Label: "Student", Value: stats.StudentID},
			{Label: "Period", Value: formatRange(stats.Range)},
			{Label: "Sessions", Value: strconv.Itoa(stats.TotalSessions)},
			{Label: "Attendance rate", Value: formatRate(stats.AttendanceRate)},
		},
		Headers: []string{"class_id", "class_name", "total_sessions", "attendance_rate", "present", "late", "absent", "excused"},
	}
	for _, class := range stats.Classes {
		row := countsRow(class.Counts)
		row["class_id"] = class.ClassID
		row["class_name"] = class.ClassName
		row["total_sessions"] = strconv.Itoa(class.TotalSessions)
		row["attendance_rate"] = formatRate(class.AttendanceRate)
		dataset.Rows = append(dataset.Rows, row)
	}
	return s.render(f, dataset, "student_"+stats.StudentID)
}

func (s *ReportService) format(raw string) (ReportFormat, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if err := s.validator.Struct(ReportRequest{Format: raw}); err != nil {
		return "", validationError(err, "format must be one of json, csv, pdf")
	}
	if raw == "" {
		return ReportFormatJSON, nil
	}
	return ReportFormat(raw), nil
}

func (s *ReportService) render(format ReportFormat, dataset export.Dataset, name string) (*Report, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}
	filename := fmt.Sprintf("attendance_%s_%s.%s", name, s.now().Format("20060102"), renderer.Extension())
	s.logger.Info("report rendered", zap.String("format", string(format)), zap.String("filename", filename), zap.Int("bytes", len(body)))
	return &Report{
		Format:      format,
		Body:        body,
		ContentType: renderer.ContentType(),
		Filename:    filename,
	}, nil
}

func countsRow(counts models.StatusCounts) map[string]string {
	return map[string]string{
		"present": strconv.Itoa(counts.Present),
		"late":    strconv.Itoa(counts.Late),
		"absent":  strconv.Itoa(counts.Absent),
		"excused": strconv.Itoa(counts.Excused),
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

func formatRange(rng models.DateRange) string {
	return rng.Start.Format(DateLayout) + " - " + rng.End.Format(DateLayout)
}
