// Package firestoredb is the Cloud Firestore Store backend. Collection names
// match the ones used by the existing mobile clients.
package firestoredb

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/csi-attendance-api/internal/repository"
	"github.com/noah-isme/csi-attendance-api/pkg/config"
)

const (
	classesCollection       = "classes"
	sessionsCollection      = "attendance_sessions"
	attendanceCollection    = "attendance_logs"
	notificationsCollection = "notifications"

	// maxInValues is the Firestore limit on values in an "in" filter.
	maxInValues = 30
)

var (
	_ repository.ClassStore        = (*ClassStore)(nil)
	_ repository.SessionStore      = (*SessionStore)(nil)
	_ repository.AttendanceStore   = (*AttendanceStore)(nil)
	_ repository.NotificationStore = (*NotificationStore)(nil)
)

// NewStore wires the Firestore repositories over client.
func NewStore(client *firestore.Client) repository.Store {
	ping := func(ctx context.Context) error {
		_, err := client.Collection(classesCollection).Limit(1).Documents(ctx).GetAll()
		return err
	}
	return repository.NewStore(
		config.StoreFirestore,
		NewClassStore(client),
		NewSessionStore(client),
		NewAttendanceStore(client),
		NewNotificationStore(client),
		ping,
		client.Close,
	)
}

// translate maps gRPC status codes onto the repository sentinels.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return repository.ErrNotFound
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// collect drains an iterator, decoding each document with decode.
func collect(iter *firestore.DocumentIterator, decode func(*firestore.DocumentSnapshot) error) error {
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := decode(snap); err != nil {
			return err
		}
	}
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	result, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := result["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result %T", result["total"])
	}
	return int(v.GetIntegerValue()), nil
}

func chunk(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxInValues {
		out = append(out, ids[:maxInValues])
		ids = ids[maxInValues:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
