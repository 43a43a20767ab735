// Package memory is an in-process Store backend. Records are deep-copied on
// every read and write so callers never share state with the store.
package memory

import (
	"github.com/noah-isme/csi-attendance-api/internal/repository"
	"github.com/noah-isme/csi-attendance-api/pkg/config"
)

var (
	_ repository.ClassStore        = (*ClassStore)(nil)
	_ repository.SessionStore      = (*SessionStore)(nil)
	_ repository.AttendanceStore   = (*AttendanceStore)(nil)
	_ repository.NotificationStore = (*NotificationStore)(nil)
)

// NewStore returns an empty in-memory store.
func NewStore() repository.Store {
	return repository.NewStore(
		config.StoreMemory,
		NewClassStore(),
		NewSessionStore(),
		NewAttendanceStore(),
		NewNotificationStore(),
		nil,
		nil,
	)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneString(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
