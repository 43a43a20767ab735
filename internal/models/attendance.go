package models

import "time"

// AttendanceStatus is the attendance outcome of a student for a session.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// AttendanceStatuses lists the supported statuses in reporting order.
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusLate,
	AttendanceStatusAbsent,
	AttendanceStatusExcused,
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceSource records how an attendance record was produced.
type AttendanceSource string

const (
	AttendanceSourceCheckIn AttendanceSource = "check_in"
	AttendanceSourceManual  AttendanceSource = "manual"
)

// Attendance is the record for one (session, student) pair.
type Attendance struct {
	SessionID  string           `db:"session_id" json:"session_id" firestore:"sessionId"`
	StudentID  string           `db:"student_id" json:"student_id" firestore:"studentId"`
	ClassID    string           `db:"class_id" json:"class_id" firestore:"classId"`
	Status     AttendanceStatus `db:"status" json:"status" firestore:"status"`
	Reason     *string          `db:"reason" json:"reason,omitempty" firestore:"reason"`
	Source     AttendanceSource `db:"source" json:"source" firestore:"source"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at" firestore:"timestamp"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at" firestore:"updatedAt"`
	UpdatedBy  *string          `db:"updated_by" json:"updated_by,omitempty" firestore:"updatedBy"`
}

// AttendanceFilter scopes attendance listing.
type AttendanceFilter struct {
	SessionID  string
	SessionIDs []string
	StudentID  string
}

// AttendanceStatusView is the effective status of a student in a session.
type AttendanceStatusView struct {
	SessionID string           `json:"session_id"`
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
	Recorded  bool             `json:"recorded"`
	Record    *Attendance      `json:"record,omitempty"`
}
