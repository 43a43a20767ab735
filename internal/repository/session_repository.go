package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

const sessionColumns = `id, class_id, owner_id, name, start_time, end_time, status, duration_minutes_planned`

// SessionRepository manages persistence for attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. A second active session for the same class violates
// the partial unique index and surfaces as ErrConflict.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `INSERT INTO attendance_sessions (` + sessionColumns + `) VALUES (:id, :class_id, :owner_id, :name, :start_time, :end_time, :status, :duration_minutes_planned)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create session: %w", ErrConflict)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID returns a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching filter ordered by start time.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if len(filter.ClassIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("class_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := "SELECT " + sessionColumns + " FROM attendance_sessions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Complete marks an active session completed. A session that is already
// completed is returned as stored.
func (r *SessionRepository) Complete(ctx context.Context, id string, endTime time.Time) (*models.Session, error) {
	const query = `UPDATE attendance_sessions SET status = 'completed', end_time = GREATEST($2, start_time) WHERE id = $1 AND status = 'active' RETURNING ` + sessionColumns
	var session models.Session
	err := r.db.GetContext(ctx, &session, query, id, endTime)
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	return r.FindByID(ctx, id)
}

// CompleteActive completes every active session of classID in one statement.
func (r *SessionRepository) CompleteActive(ctx context.Context, classID string, endTime time.Time) ([]models.Session, error) {
	const query = `UPDATE attendance_sessions SET status = 'completed', end_time = GREATEST($2, start_time) WHERE class_id = $1 AND status = 'active' RETURNING ` + sessionColumns
	completed := []models.Session{}
	if err := r.db.SelectContext(ctx, &completed, query, classID, endTime); err != nil {
		return nil, fmt.Errorf("complete active sessions: %w", err)
	}
	return completed, nil
}
