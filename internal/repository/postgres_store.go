package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/csi-attendance-api/pkg/config"
)

var (
	_ ClassStore        = (*ClassRepository)(nil)
	_ SessionStore      = (*SessionRepository)(nil)
	_ AttendanceStore   = (*AttendanceRepository)(nil)
	_ NotificationStore = (*NotificationRepository)(nil)
)

// NewPostgresStore wires the sqlx repositories over db.
func NewPostgresStore(db *sqlx.DB) Store {
	return NewStore(
		config.StorePostgres,
		NewClassRepository(db),
		NewSessionRepository(db),
		NewAttendanceRepository(db),
		NewNotificationRepository(db),
		db.PingContext,
		db.Close,
	)
}
