package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

type statsClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Class, error)
}

type sessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
}

// StatisticsService aggregates attendance over classes and students.
type StatisticsService struct {
	classes    statsClassReader
	sessions   sessionLister
	attendance attendanceLister
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewStatisticsService constructs StatisticsService. cache may be nil.
func NewStatisticsService(classes statsClassReader, sessions sessionLister, attendance attendanceLister, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		classes:    classes,
		sessions:   sessions,
		attendance: attendance,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ClassAttendanceStats aggregates a class's sessions starting within rng against its current roster.
// Students without a record for a session count as absent.
func (s *StatisticsService) ClassAttendanceStats(ctx context.Context, classID string, rng models.DateRange) (*models.ClassStats, error) {
	rng, err := normalizeRange(rng, ClassStatsLookbackMonths, s.now())
	if err != nil {
		return nil, err
	}

	key := classStatsKey(classID, rangeKey(rng))
	var cached models.ClassStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		s.logger.Debug("class stats served from cache", zap.String("class_id", classID))
		return &cached, nil
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	sessions, err := s.sessions.List(ctx, models.SessionFilter{ClassID: class.ID, From: &rng.Start, To: &rng.End})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sessions")
	}
	records, err := s.recordsFor(ctx, sessions, "")
	if err != nil {
		return nil, err
	}

	stats := &models.ClassStats{
		ClassID:          class.ID,
		ClassName:        class.Name,
		Range:            rng,
		TotalSessions:    len(sessions),
		TotalStudents:    len(class.Students),
		AttendanceByDate: []models.DateAttendance{},
		StudentStats:     make([]models.StudentAttendanceRate, 0, len(class.Students)),
	}

	perStudent := make(map[string]*models.StatusCounts, len(class.Students))
	for _, studentID := range class.Students {
		perStudent[studentID] = &models.StatusCounts{}
	}
	byDate := map[string]*models.DateAttendance{}
	var dates []string

	for _, session := range sessions {
		date := session.StartTime.UTC().Format(DateLayout)
		day, ok := byDate[date]
		if !ok {
			day = &models.DateAttendance{Date: date, RosterSize: len(class.Students)}
			byDate[date] = day
			dates = append(dates, date)
		}
		day.Sessions++
		for _, studentID := range class.Students {
			status := effectiveStatus(records, session.ID, studentID)
			perStudent[studentID].Add(status)
			stats.AttendanceByStatus.Add(status)
			day.Counts.Add(status)
		}
	}

	sort.Strings(dates)
	for _, date := range dates {
		stats.AttendanceByDate = append(stats.AttendanceByDate, *byDate[date])
	}

	var rateSum float64
	for _, studentID := range class.Students {
		counts := *perStudent[studentID]
		rate := roundTo(percentage(counts.Present+counts.Late+counts.Excused, stats.TotalSessions), 1)
		rateSum += rate
		stats.StudentStats = append(stats.StudentStats, models.StudentAttendanceRate{
			StudentID:      studentID,
			Counts:         counts,
			AttendanceRate: rate,
		})
	}
	if stats.TotalStudents > 0 {
		stats.AverageAttendanceRate = roundTo(rateSum/float64(stats.TotalStudents), 1)
	}
	attended := stats.AttendanceByStatus.Present + stats.AttendanceByStatus.Late
	stats.PooledAttendanceRate = roundTo(percentage(attended, stats.TotalSessions*stats.TotalStudents), 0)

	_ = s.cache.Set(ctx, key, stats, s.cacheTTL)
	return stats, nil
}

// StudentAttendanceStats rolls a student's attendance up across classes.
// With no classIDs every class enrolling the student is used.
func (s *StatisticsService) StudentAttendanceStats(ctx context.Context, studentID string, classIDs []string, rng models.DateRange) (*models.StudentStats, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	rng, err := normalizeRange(rng, StudentStatsLookbackMonths, s.now())
	if err != nil {
		return nil, err
	}
	classIDs = dedupe(classIDs)
	sort.Strings(classIDs)

	key := studentStatsKey(studentID, strings.Join(classIDs, ","), rangeKey(rng))
	var cached models.StudentStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		s.logger.Debug("student stats served from cache", zap.String("student_id", studentID))
		return &cached, nil
	}

	classes, err := s.resolveClasses(ctx, studentID, classIDs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(classes))
	for i, class := range classes {
		ids[i] = class.ID
	}
	sessions, err := s.sessions.List(ctx, models.SessionFilter{ClassIDs: ids, From: &rng.Start, To: &rng.End})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sessions")
	}
	records, err := s.recordsFor(ctx, sessions, studentID)
	if err != nil {
		return nil, err
	}

	perClass := make(map[string]*models.StudentClassStats, len(classes))
	stats := &models.StudentStats{
		StudentID: studentID,
		Range:     rng,
		Classes:   make([]models.StudentClassStats, 0, len(classes)),
	}
	for _, class := range classes {
		perClass[class.ID] = &models.StudentClassStats{ClassID: class.ID, ClassName: class.Name}
	}
	for _, session := range sessions {
		entry, ok := perClass[session.ClassID]
		if !ok {
			continue
		}
		status := effectiveStatus(records, session.ID, studentID)
		entry.TotalSessions++
		entry.Counts.Add(status)
		stats.TotalSessions++
		stats.Counts.Add(status)
	}
	for _, class := range classes {
		entry := perClass[class.ID]
		entry.AttendanceRate = roundTo(percentage(entry.Counts.Present+entry.Counts.Late, entry.TotalSessions), 0)
		stats.Classes = append(stats.Classes, *entry)
	}
	stats.AttendanceRate = roundTo(percentage(stats.Counts.Present+stats.Counts.Late, stats.TotalSessions), 0)

	_ = s.cache.Set(ctx, key, stats, s.cacheTTL)
	return stats, nil
}

func (s *StatisticsService) resolveClasses(ctx context.Context, studentID string, classIDs []string) ([]models.Class, error) {
	if len(classIDs) == 0 {
		classes, err := s.classes.ListByStudent(ctx, studentID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list student classes")
		}
		if len(classes) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in any class")
		}
		return classes, nil
	}

	classes := make([]models.Class, 0, len(classIDs))
	for _, id := range classIDs {
		class, err := s.classes.FindByID(ctx, id)
		if err != nil {
			return nil, lookupError(err, "class not found", "failed to load class")
		}
		classes = append(classes, *class)
	}
	return classes, nil
}

// recordsFor indexes attendance for sessions by session then student.
func (s *StatisticsService) recordsFor(ctx context.Context, sessions []models.Session, studentID string) (map[string]map[string]models.AttendanceStatus, error) {
	index := make(map[string]map[string]models.AttendanceStatus, len(sessions))
	if len(sessions) == 0 {
		return index, nil
	}
	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{SessionIDs: ids, StudentID: studentID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	for _, record := range records {
		bySession, ok := index[record.SessionID]
		if !ok {
			bySession = map[string]models.AttendanceStatus{}
			index[record.SessionID] = bySession
		}
		bySession[record.StudentID] = record.Status
	}
	return index, nil
}

func effectiveStatus(index map[string]map[string]models.AttendanceStatus, sessionID, studentID string) models.AttendanceStatus {
	if status, ok := index[sessionID][studentID]; ok {
		return status
	}
	return models.AttendanceStatusAbsent
}

func rangeKey(rng models.DateRange) string {
	return strconv.FormatInt(rng.Start.UnixMilli(), 10) + "-" + strconv.FormatInt(rng.End.UnixMilli(), 10)
}
