package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

const attendanceColumns = `session_id, student_id, class_id, status, reason, source, recorded_at, updated_at, updated_by`

// AttendanceRepository manages attendance_records, unique on (session_id, student_id).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Find returns the record for a session and student.
func (r *AttendanceRepository) Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error) {
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, `SELECT `+attendanceColumns+` FROM attendance_records WHERE session_id = $1 AND student_id = $2`, sessionID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns records matching filter in recording order.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	var conditions []string
	var args []interface{}

	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if len(filter.SessionIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("session_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.SessionIDs))
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	query := "SELECT " + attendanceColumns + " FROM attendance_records"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY recorded_at ASC"

	records := []models.Attendance{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// InsertIfAbsent stores record unless one exists for the key. The existing
// record is returned untouched with created=false.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, record *models.Attendance) (*models.Attendance, bool, error) {
	query, args, err := r.db.BindNamed(`INSERT INTO attendance_records (`+attendanceColumns+`) VALUES (:session_id, :student_id, :class_id, :status, :reason, :source, :recorded_at, :updated_at, :updated_by) ON CONFLICT (session_id, student_id) DO NOTHING RETURNING `+attendanceColumns, record)
	if err != nil {
		return nil, false, fmt.Errorf("bind attendance insert: %w", err)
	}

	var stored models.Attendance
	err = r.db.GetContext(ctx, &stored, query, args...)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert attendance: %w", err)
	}

	existing, err := r.Find(ctx, record.SessionID, record.StudentID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing attendance: %w", err)
	}
	return existing, false, nil
}

// Upsert writes record, overwriting status, reason, source and audit fields of
// an existing row while keeping its recorded_at.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	query, args, err := r.db.BindNamed(`INSERT INTO attendance_records (`+attendanceColumns+`) VALUES (:session_id, :student_id, :class_id, :status, :reason, :source, :recorded_at, :updated_at, :updated_by)
ON CONFLICT (session_id, student_id) DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by
RETURNING `+attendanceColumns, record)
	if err != nil {
		return nil, fmt.Errorf("bind attendance upsert: %w", err)
	}

	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query, args...); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}
