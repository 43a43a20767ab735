package models

import "time"

// DefaultRoom is assigned when a class is created without a room.
const DefaultRoom = "TBD"

// Inactivity threshold bounds in minutes.
const (
	MinInactivityThreshold = 1
	MaxInactivityThreshold = 60
)

// InactivityPolicy configures when a student is considered gone during a session.
type InactivityPolicy struct {
	ThresholdMinutes int        `json:"threshold_minutes" firestore:"thresholdMinutes"`
	Enabled          bool       `json:"enabled" firestore:"enabled"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty" firestore:"updatedAt"`
	UpdatedBy        *string    `json:"updated_by,omitempty" firestore:"updatedBy"`
}

// Class is a teaching group owned by one teacher with an ordered student roster.
type Class struct {
	ID               string           `db:"id" json:"id" firestore:"-"`
	Name             string           `db:"name" json:"name" firestore:"name"`
	OwnerID          string           `db:"owner_id" json:"owner_id" firestore:"teacherId"`
	Schedule         string           `db:"schedule" json:"schedule" firestore:"schedule"`
	Room             string           `db:"room" json:"room" firestore:"room"`
	Description      string           `db:"description" json:"description" firestore:"description"`
	Students         []string         `db:"-" json:"students" firestore:"students"`
	InactivityPolicy InactivityPolicy `db:"-" json:"inactivity_policy" firestore:"inactivityPolicy"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at" firestore:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at" firestore:"updatedAt"`
}

// HasStudent reports whether studentID is on the roster.
func (c *Class) HasStudent(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	OwnerID   string
	StudentID string
	Page      int
	PageSize  int
}

// RosterChange reports the outcome of adding students to a class.
type RosterChange struct {
	ClassID string   `json:"class_id"`
	Added   []string `json:"added"`
	Total   int      `json:"total"`
}
