package models

import "time"

// DateRange bounds statistics by session start time, inclusive on both ends.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// StatusCounts tallies effective attendance statuses.
type StatusCounts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
}

// Add increments the counter for status.
func (c *StatusCounts) Add(status AttendanceStatus) {
	switch status {
	case AttendanceStatusPresent:
		c.Present++
	case AttendanceStatusLate:
		c.Late++
	case AttendanceStatusExcused:
		c.Excused++
	default:
		c.Absent++
	}
}

// Total returns the number of tallied records.
func (c StatusCounts) Total() int {
	return c.Present + c.Late + c.Absent + c.Excused
}

// StudentAttendanceRate is a roster member's standing within a class.
type StudentAttendanceRate struct {
	StudentID      string       `json:"student_id"`
	Counts         StatusCounts `json:"counts"`
	AttendanceRate float64      `json:"attendance_rate"`
}

// DateAttendance tallies statuses for sessions starting on one calendar day.
type DateAttendance struct {
	Date       string       `json:"date"`
	Sessions   int          `json:"sessions"`
	RosterSize int          `json:"roster_size"`
	Counts     StatusCounts `json:"counts"`
}

// ClassStats aggregates attendance for a class over a date range.
type ClassStats struct {
	ClassID               string                  `json:"class_id"`
	ClassName             string                  `json:"class_name"`
	Range                 DateRange               `json:"range"`
	TotalSessions         int                     `json:"total_sessions"`
	TotalStudents         int                     `json:"total_students"`
	AverageAttendanceRate float64                 `json:"average_attendance_rate"`
	PooledAttendanceRate  float64                 `json:"pooled_attendance_rate"`
	AttendanceByStatus    StatusCounts            `json:"attendance_by_status"`
	AttendanceByDate      []DateAttendance        `json:"attendance_by_date"`
	StudentStats          []StudentAttendanceRate `json:"student_stats"`
}

// StudentClassStats aggregates one student's attendance within one class.
type StudentClassStats struct {
	ClassID        string       `json:"class_id"`
	ClassName      string       `json:"class_name"`
	TotalSessions  int          `json:"total_sessions"`
	Counts         StatusCounts `json:"counts"`
	AttendanceRate float64      `json:"attendance_rate"`
}

// StudentStats aggregates a student's attendance across classes.
type StudentStats struct {
	StudentID      string              `json:"student_id"`
	Range          DateRange           `json:"range"`
	TotalSessions  int                 `json:"total_sessions"`
	Counts         StatusCounts        `json:"counts"`
	AttendanceRate float64             `json:"attendance_rate"`
	Classes        []StudentClassStats `json:"classes"`
}
