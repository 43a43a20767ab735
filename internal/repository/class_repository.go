package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

const classColumns = `id, name, owner_id, schedule, room, description, inactivity_threshold_minutes, inactivity_enabled, inactivity_updated_at, inactivity_updated_by, created_at, updated_at`

type classRow struct {
	models.Class
	ThresholdMinutes  int        `db:"inactivity_threshold_minutes"`
	InactivityEnabled bool       `db:"inactivity_enabled"`
	PolicyUpdatedAt   *time.Time `db:"inactivity_updated_at"`
	PolicyUpdatedBy   *string    `db:"inactivity_updated_by"`
}

func newClassRow(class *models.Class) classRow {
	return classRow{
		Class:             *class,
		ThresholdMinutes:  class.InactivityPolicy.ThresholdMinutes,
		InactivityEnabled: class.InactivityPolicy.Enabled,
		PolicyUpdatedAt:   class.InactivityPolicy.UpdatedAt,
		PolicyUpdatedBy:   class.InactivityPolicy.UpdatedBy,
	}
}

func (r classRow) model() models.Class {
	class := r.Class
	class.InactivityPolicy = models.InactivityPolicy{
		ThresholdMinutes: r.ThresholdMinutes,
		Enabled:          r.InactivityEnabled,
		UpdatedAt:        r.PolicyUpdatedAt,
		UpdatedBy:        r.PolicyUpdatedBy,
	}
	class.Students = []string{}
	return class
}

// ClassRepository manages persistence for classes and the class_students roster table.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create persists a class and its initial roster.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO classes (` + classColumns + `) VALUES (:id, :name, :owner_id, :schedule, :room, :description, :inactivity_threshold_minutes, :inactivity_enabled, :inactivity_updated_at, :inactivity_updated_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, newClassRow(class)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create class: %w", ErrConflict)
		}
		return fmt.Errorf("create class: %w", err)
	}
	if len(class.Students) > 0 {
		if _, err = insertStudents(ctx, tx, class.ID, class.Students); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// FindByID returns a class with its roster in enrolment order.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var row classRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id); err != nil {
		return nil, err
	}
	class := row.model()
	if err := r.db.SelectContext(ctx, &class.Students, `SELECT student_id FROM class_students WHERE class_id = $1 ORDER BY seq`, id); err != nil {
		return nil, fmt.Errorf("load class roster: %w", err)
	}
	return &class, nil
}

// List returns classes matching filter criteria, oldest first.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base, args := classFilterClause(filter)
	page, size := Pagination(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", classColumns, base, size, offset)
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	classes, err := r.withRosters(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

// ListByStudent returns every class whose roster contains studentID.
func (r *ClassRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	base, args := classFilterClause(models.ClassFilter{StudentID: studentID})
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT "+classColumns+" "+base+" ORDER BY created_at ASC, id ASC", args...); err != nil {
		return nil, fmt.Errorf("list classes by student: %w", err)
	}
	return r.withRosters(ctx, rows)
}

// Update rewrites mutable class attributes. Owner and roster are left untouched.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET name = :name, schedule = :schedule, room = :room, description = :description, inactivity_threshold_minutes = :inactivity_threshold_minutes, inactivity_enabled = :inactivity_enabled, inactivity_updated_at = :inactivity_updated_at, inactivity_updated_by = :inactivity_updated_by, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, newClassRow(class))
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStudents appends ids not yet enrolled and returns those added plus the new roster size.
func (r *ClassRepository) AddStudents(ctx context.Context, classID string, studentIDs []string) ([]string, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin add students: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var added []string
	if added, err = insertStudents(ctx, tx, classID, studentIDs); err != nil {
		return nil, 0, err
	}
	var total int
	if err = tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM class_students WHERE class_id = $1`, classID); err != nil {
		return nil, 0, fmt.Errorf("count class students: %w", err)
	}
	if len(added) > 0 {
		if _, err = tx.ExecContext(ctx, `UPDATE classes SET updated_at = $2 WHERE id = $1`, classID, time.Now().UTC()); err != nil {
			return nil, 0, fmt.Errorf("touch class: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit add students: %w", err)
	}
	return added, total, nil
}

// RemoveStudent drops studentID from the roster. The boolean is false when it was not enrolled.
func (r *ClassRepository) RemoveStudent(ctx context.Context, classID, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return false, fmt.Errorf("remove class student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove class student: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE classes SET updated_at = $2 WHERE id = $1`, classID, time.Now().UTC()); err != nil {
		return true, fmt.Errorf("touch class: %w", err)
	}
	return true, nil
}

func (r *ClassRepository) withRosters(ctx context.Context, rows []classRow) ([]models.Class, error) {
	classes := make([]models.Class, 0, len(rows))
	if len(rows) == 0 {
		return classes, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		classes = append(classes, row.model())
		ids[i] = row.ID
		index[row.ID] = i
	}

	var members []struct {
		ClassID   string `db:"class_id"`
		StudentID string `db:"student_id"`
	}
	if err := r.db.SelectContext(ctx, &members, `SELECT class_id, student_id FROM class_students WHERE class_id = ANY($1) ORDER BY seq`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load class rosters: %w", err)
	}
	for _, m := range members {
		if i, ok := index[m.ClassID]; ok {
			classes[i].Students = append(classes[i].Students, m.StudentID)
		}
	}
	return classes, nil
}

func classFilterClause(filter models.ClassFilter) (string, []interface{}) {
	base := "FROM classes WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM class_students cs WHERE cs.class_id = classes.id AND cs.student_id = $%d)", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}

func insertStudents(ctx context.Context, tx *sqlx.Tx, classID string, studentIDs []string) ([]string, error) {
	const query = `INSERT INTO class_students (class_id, student_id) SELECT $1, s.student_id FROM unnest($2::text[]) WITH ORDINALITY AS s(student_id, ord) ORDER BY s.ord ON CONFLICT (class_id, student_id) DO NOTHING RETURNING student_id`
	added := []string{}
	if err := tx.SelectContext(ctx, &added, query, classID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("insert class students: %w", err)
	}
	return added, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
