package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "H"
	AttendanceStatusSick    AttendanceStatus = "S"
	AttendanceStatusExcused AttendanceStatus = "I"
	AttendanceStatusAbsent  AttendanceStatus = "A"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusSick, AttendanceStatusExcused, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one student's attendance for a group class session.
// Unique on (group_id, student_id, session_date).
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	GroupID     string           `db:"group_id" json:"group_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	SessionDate time.Time        `db:"session_date" json:"session_date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	RecordedBy  string           `db:"recorded_by" json:"recorded_by"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFacts aggregates a student's attendance counters inside a group.
// Present counts as attended; sick and excused do not.
type AttendanceFacts struct {
	TotalClasses    int `db:"total_classes"`
	AttendedClasses int `db:"attended_classes"`
}

// AttendanceFilter scopes attendance listing queries.
type AttendanceFilter struct {
	GroupID   string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *AttendanceStatus
	Page      int
	PageSize  int
}
