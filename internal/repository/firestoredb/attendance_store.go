package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/csi-attendance-api/internal/models"
)

// AttendanceStore keeps one attendance_logs document per (session, student).
type AttendanceStore struct {
	client *firestore.Client
}

// NewAttendanceStore constructs a Firestore attendance store.
func NewAttendanceStore(client *firestore.Client) *AttendanceStore {
	return &AttendanceStore{client: client}
}

// DocID is the document id for a (session, student) key.
func DocID(sessionID, studentID string) string {
	return sessionID + "__" + studentID
}

func (s *AttendanceStore) doc(sessionID, studentID string) *firestore.DocumentRef {
	return s.client.Collection(attendanceCollection).Doc(DocID(sessionID, studentID))
}

func decodeAttendance(snap *firestore.DocumentSnapshot) (*models.Attendance, error) {
	var record models.Attendance
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("decode attendance %s: %w", snap.Ref.ID, err)
	}
	return &record, nil
}

// Find loads the record for a session and student.
func (s *AttendanceStore) Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error) {
	snap, err := s.doc(sessionID, studentID).Get(ctx)
	if err != nil {
		return nil, translate(err, "get attendance")
	}
	return decodeAttendance(snap)
}

// List queries records by session(s) or student.
func (s *AttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	base := s.client.Collection(attendanceCollection).Query
	if filter.SessionID != "" {
		base = base.Where("sessionId", "==", filter.SessionID)
	}
	if filter.StudentID != "" {
		base = base.Where("studentId", "==", filter.StudentID)
	}
	queries := []firestore.Query{base}
	if len(filter.SessionIDs) > 0 {
		queries = queries[:0]
		for _, ids := range chunk(filter.SessionIDs) {
			queries = append(queries, base.Where("sessionId", "in", ids))
		}
	}

	records := []models.Attendance{}
	for _, q := range queries {
		err := collect(q.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
			record, err := decodeAttendance(snap)
			if err != nil {
				return err
			}
			records = append(records, *record)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list attendance: %w", err)
		}
	}
	return records, nil
}

// InsertIfAbsent relies on Create failing with AlreadyExists for an occupied key.
func (s *AttendanceStore) InsertIfAbsent(ctx context.Context, record *models.Attendance) (*models.Attendance, bool, error) {
	ref := s.doc(record.SessionID, record.StudentID)
	_, err := ref.Create(ctx, record)
	if err == nil {
		stored := *record
		return &stored, true, nil
	}
	if translated := translate(err, "insert attendance"); !isConflict(translated) {
		return nil, false, translated
	}
	existing, err := s.Find(ctx, record.SessionID, record.StudentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Upsert overwrites the record in a transaction, preserving the first recordedAt.
func (s *AttendanceStore) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	ref := s.doc(record.SessionID, record.StudentID)
	next := *record
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		next = *record
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			existing, err := decodeAttendance(snap)
			if err != nil {
				return err
			}
			next.RecordedAt = existing.RecordedAt
		case !isNotFound(err):
			return err
		}
		return tx.Set(ref, &next)
	})
	if err != nil {
		return nil, translate(err, "upsert attendance")
	}
	return &next, nil
}
