package firestoredb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// SessionStore keeps sessions in the attendance_sessions collection.
type SessionStore struct {
	client *firestore.Client
}

// NewSessionStore constructs a Firestore session store.
func NewSessionStore(client *firestore.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) collection() *firestore.CollectionRef {
	return s.client.Collection(sessionsCollection)
}

func decodeSession(snap *firestore.DocumentSnapshot) (*models.Session, error) {
	var session models.Session
	if err := snap.DataTo(&session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", snap.Ref.ID, err)
	}
	session.ID = snap.Ref.ID
	return &session, nil
}

// Create stores session under its id. An active session is written in a
// transaction that first reads the class's active sessions, so a concurrent
// writer in another process aborts the commit and one of the two sees ErrConflict.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	ref := s.collection().Doc(session.ID)
	if !session.Active() {
		_, err := ref.Create(ctx, session)
		return translate(err, "create session")
	}

	q := s.activeQuery(session.ClassID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if snap.Ref.ID != session.ID {
				return repository.ErrConflict
			}
		}
		return tx.Create(ref, session)
	})
	return translate(err, "create session")
}

func (s *SessionStore) activeQuery(classID string) firestore.Query {
	return s.collection().Where("classId", "==", classID).Where("status", "==", string(models.SessionStatusActive))
}

// FindByID loads a session document.
func (s *SessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	snap, err := s.collection().Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "get session")
	}
	return decodeSession(snap)
}

// List runs one query per chunk of class ids and merges the results by start time.
func (s *SessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	base := s.collection().Query
	if filter.ClassID != "" {
		base = base.Where("classId", "==", filter.ClassID)
	}
	if filter.Status != "" {
		base = base.Where("status", "==", string(filter.Status))
	}
	if filter.From != nil {
		base = base.Where("startTime", ">=", *filter.From)
	}
	if filter.To != nil {
		base = base.Where("startTime", "<=", *filter.To)
	}

	queries := []firestore.Query{base}
	if len(filter.ClassIDs) > 0 {
		queries = queries[:0]
		for _, ids := range chunk(filter.ClassIDs) {
			queries = append(queries, base.Where("classId", "in", ids))
		}
	}

	sessions := []models.Session{}
	for _, q := range queries {
		err := collect(q.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
			session, err := decodeSession(snap)
			if err != nil {
				return err
			}
			sessions = append(sessions, *session)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

// Complete transitions an active session inside a transaction.
func (s *SessionStore) Complete(ctx context.Context, id string, endTime time.Time) (*models.Session, error) {
	var result *models.Session
	ref := s.collection().Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		session, err := decodeSession(snap)
		if err != nil {
			return err
		}
		result = session
		if !session.Active() {
			return nil
		}
		completeSession(session, endTime)
		return tx.Update(ref, completionUpdates(session))
	})
	if err != nil {
		return nil, translate(err, "complete session")
	}
	return result, nil
}

// CompleteActive completes every active session of classID in one transaction.
func (s *SessionStore) CompleteActive(ctx context.Context, classID string, endTime time.Time) ([]models.Session, error) {
	var completed []models.Session
	q := s.activeQuery(classID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		completed = []models.Session{}
		snaps, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			session, err := decodeSession(snap)
			if err != nil {
				return err
			}
			completeSession(session, endTime)
			if err := tx.Update(snap.Ref, completionUpdates(session)); err != nil {
				return err
			}
			completed = append(completed, *session)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "complete active sessions")
	}
	return completed, nil
}

func completeSession(session *models.Session, endTime time.Time) {
	if endTime.Before(session.StartTime) {
		endTime = session.StartTime
	}
	session.Status = models.SessionStatusCompleted
	session.EndTime = &endTime
}

func completionUpdates(session *models.Session) []firestore.Update {
	return []firestore.Update{
		{Path: "status", Value: string(session.Status)},
		{Path: "endTime", Value: *session.EndTime},
	}
}
