package models

import "time"

// SessionStatus is the lifecycle state of an attendance session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// DefaultSessionMinutes is the planned duration used when none is given.
const DefaultSessionMinutes = 90

// Session is one sitting of a class during which attendance is taken.
type Session struct {
	ID                     string        `db:"id" json:"id" firestore:"-"`
	ClassID                string        `db:"class_id" json:"class_id" firestore:"classId"`
	OwnerID                string        `db:"owner_id" json:"owner_id" firestore:"teacherId"`
	Name                   string        `db:"name" json:"name" firestore:"name"`
	StartTime              time.Time     `db:"start_time" json:"start_time" firestore:"startTime"`
	EndTime                *time.Time    `db:"end_time" json:"end_time,omitempty" firestore:"endTime"`
	Status                 SessionStatus `db:"status" json:"status" firestore:"status"`
	DurationMinutesPlanned int           `db:"duration_minutes_planned" json:"duration_minutes_planned" firestore:"duration"`
}

// Active reports whether the session is still accepting the implicit-complete transition.
func (s *Session) Active() bool {
	return s.Status == SessionStatusActive
}

// SessionFilter scopes session listing. Zero values disable a criterion.
type SessionFilter struct {
	ClassID  string
	ClassIDs []string
	Status   SessionStatus
	From     *time.Time
	To       *time.Time
}

// SessionDetail bundles a session with the attendance recorded against it.
type SessionDetail struct {
	Session    Session      `json:"session"`
	Attendance []Attendance `json:"attendance"`
}

// RosterEntry is the effective attendance of one student in a session.
type RosterEntry struct {
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
	Enrolled  bool             `json:"enrolled"`
	Recorded  bool             `json:"recorded"`
	Record    *Attendance      `json:"record,omitempty"`
}

// SessionRoster lists every enrolled student plus any record left by a non-roster student.
type SessionRoster struct {
	Session Session       `json:"session"`
	Entries []RosterEntry `json:"entries"`
}
