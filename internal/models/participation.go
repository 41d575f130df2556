package models

import "time"

// ParticipationRecord captures one class-participation entry for a
// student in a group, recorded by the teacher.
type ParticipationRecord struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Date        time.Time `db:"date" json:"date"`
	Description *string   `db:"description" json:"description,omitempty"`
	RecordedBy  string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ParticipationFilter scopes participation listing queries.
type ParticipationFilter struct {
	GroupID   string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}
