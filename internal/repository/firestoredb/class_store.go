package firestoredb

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

// ClassStore keeps classes as documents with an embedded students array.
type ClassStore struct {
	client *firestore.Client
}

// NewClassStore constructs a Firestore class store.
func NewClassStore(client *firestore.Client) *ClassStore {
	return &ClassStore{client: client}
}

func (s *ClassStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(classesCollection).Doc(id)
}

func decodeClass(snap *firestore.DocumentSnapshot) (*models.Class, error) {
	var class models.Class
	if err := snap.DataTo(&class); err != nil {
		return nil, fmt.Errorf("decode class %s: %w", snap.Ref.ID, err)
	}
	class.ID = snap.Ref.ID
	if class.Students == nil {
		class.Students = []string{}
	}
	return &class, nil
}

// Create stores class under its id.
func (s *ClassStore) Create(ctx context.Context, class *models.Class) error {
	if class.Students == nil {
		class.Students = []string{}
	}
	_, err := s.doc(class.ID).Create(ctx, class)
	return translate(err, "create class")
}

// FindByID loads a class document.
func (s *ClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "get class")
	}
	return decodeClass(snap)
}

func (s *ClassStore) query(filter models.ClassFilter) firestore.Query {
	q := s.client.Collection(classesCollection).Query
	if filter.OwnerID != "" {
		q = q.Where("teacherId", "==", filter.OwnerID)
	}
	if filter.StudentID != "" {
		q = q.Where("students", "array-contains", filter.StudentID)
	}
	return q
}

// List pages classes matching filter, oldest first.
func (s *ClassStore) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	page, size := repository.Pagination(filter.Page, filter.PageSize)
	q := s.query(filter)

	total, err := count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	classes := []models.Class{}
	iter := q.OrderBy("createdAt", firestore.Asc).Offset((page - 1) * size).Limit(size).Documents(ctx)
	err = collect(iter, func(snap *firestore.DocumentSnapshot) error {
		class, err := decodeClass(snap)
		if err != nil {
			return err
		}
		classes = append(classes, *class)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	return classes, total, nil
}

// ListByStudent returns every class whose students array contains studentID.
func (s *ClassStore) ListByStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	classes := []models.Class{}
	err := collect(s.query(models.ClassFilter{StudentID: studentID}).Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		class, err := decodeClass(snap)
		if err != nil {
			return err
		}
		classes = append(classes, *class)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list classes by student: %w", err)
	}
	return classes, nil
}

// Update writes mutable attributes. teacherId and students are never touched here.
func (s *ClassStore) Update(ctx context.Context, class *models.Class) error {
	_, err := s.doc(class.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: class.Name},
		{Path: "schedule", Value: class.Schedule},
		{Path: "room", Value: class.Room},
		{Path: "description", Value: class.Description},
		{Path: "inactivityPolicy", Value: class.InactivityPolicy},
		{Path: "updatedAt", Value: class.UpdatedAt},
	})
	return translate(err, "update class")
}

// AddStudents appends unseen ids inside a transaction so concurrent edits do not drop members.
func (s *ClassStore) AddStudents(ctx context.Context, classID string, studentIDs []string) ([]string, int, error) {
	var added []string
	var total int
	ref := s.doc(classID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		added = []string{}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		class, err := decodeClass(snap)
		if err != nil {
			return err
		}
		for _, id := range studentIDs {
			if !class.HasStudent(id) {
				class.Students = append(class.Students, id)
				added = append(added, id)
			}
		}
		total = len(class.Students)
		if len(added) == 0 {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "students", Value: class.Students},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return nil, 0, translate(err, "add class students")
	}
	return added, total, nil
}

// RemoveStudent drops studentID from the students array.
func (s *ClassStore) RemoveStudent(ctx context.Context, classID, studentID string) (bool, error) {
	var removed bool
	ref := s.doc(classID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		removed = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		class, err := decodeClass(snap)
		if err != nil {
			return err
		}
		if !class.HasStudent(studentID) {
			return nil
		}
		removed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "students", Value: firestore.ArrayRemove(studentID)},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return false, translate(err, "remove class student")
	}
	return removed, nil
}
