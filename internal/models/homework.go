package models

import "time"

// SubmissionStatus tracks a homework submission through grading.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusGraded    SubmissionStatus = "GRADED"
	SubmissionStatusLate      SubmissionStatus = "LATE"
)

// Homework is an assignment issued to a group.
type Homework struct {
	ID          string     `db:"id" json:"id"`
	GroupID     string     `db:"group_id" json:"group_id"`
	TeacherID   string     `db:"teacher_id" json:"teacher_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	Deadline    *time.Time `db:"deadline" json:"deadline,omitempty"`
	MaxGrade    float64    `db:"max_grade" json:"max_grade"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// HomeworkSubmission is one student's answer to a homework. Unique on
// (homework_id, student_id). Grade is on [0,10] once status is GRADED.
type HomeworkSubmission struct {
	ID          string           `db:"id" json:"id"`
	HomeworkID  string           `db:"homework_id" json:"homework_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	Content     *string          `db:"content" json:"content,omitempty"`
	Status      SubmissionStatus `db:"status" json:"status"`
	Grade       *float64         `db:"grade" json:"grade,omitempty"`
	Feedback    *string          `db:"feedback" json:"feedback,omitempty"`
	GradedBy    *string          `db:"graded_by" json:"graded_by,omitempty"`
	SubmittedAt time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt    *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
}

// HomeworkFacts aggregates a student's homework counters inside a group.
type HomeworkFacts struct {
	TotalHomeworks     int     `db:"total_homeworks"`
	CompletedHomeworks int     `db:"completed_homeworks"`
	AverageGrade       float64 `db:"average_grade"`
}

// HomeworkFilter scopes homework listing queries.
type HomeworkFilter struct {
	GroupID   string
	TeacherID string
	Page      int
	PageSize  int
}
