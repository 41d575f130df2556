package models

import "time"

// Component weights for the total score. They must sum to 1.
const (
	WeightGrades             = 0.4
	WeightAttendance         = 0.25
	WeightHomeworkCompletion = 0.25
	WeightClassParticipation = 0.1
)

// ComponentScale is the closed scale every rating component lives on.
const (
	ComponentScaleMin = 0.0
	ComponentScaleMax = 10.0
)

// Rating is the per-student-per-group scored record. Unique on
// (student_id, group_id). Version implements optimistic concurrency:
// every persisted recompute bumps it, and a stale write is rejected.
type Rating struct {
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"student_id"`
	GroupID   string `db:"group_id" json:"group_id"`

	// Component scores on [0,10].
	Grades             float64 `db:"grades" json:"grades"`
	Attendance         float64 `db:"attendance" json:"attendance"`
	HomeworkCompletion float64 `db:"homework_completion" json:"homework_completion"`
	ClassParticipation float64 `db:"class_participation" json:"class_participation"`

	// TotalScore is always derived from the components, never set directly.
	TotalScore float64 `db:"total_score" json:"total_score"`

	// RankInGroup is valid only immediately after a resolve pass.
	RankInGroup int `db:"rank_in_group" json:"rank_in_group"`

	// Raw fact counters the derived components are computed from.
	TotalHomeworks     int     `db:"total_homeworks" json:"total_homeworks"`
	CompletedHomeworks int     `db:"completed_homeworks" json:"completed_homeworks"`
	TotalClasses       int     `db:"total_classes" json:"total_classes"`
	AttendedClasses    int     `db:"attended_classes" json:"attended_classes"`
	ParticipationCount int     `db:"participation_count" json:"participation_count"`
	AverageGrade       float64 `db:"average_grade" json:"average_grade"`

	Version   int       `db:"version" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	MonthlyStats []RatingMonthlyStat `json:"monthly_stats,omitempty"`
}

// RatingMonthlyStat is a write-once historical snapshot of a rating at
// period close. Unique on (rating_id, year, month), never mutated.
type RatingMonthlyStat struct {
	ID                 string    `db:"id" json:"id"`
	RatingID           string    `db:"rating_id" json:"rating_id"`
	Year               int       `db:"year" json:"year"`
	Month              int       `db:"month" json:"month"`
	Grades             float64   `db:"grades" json:"grades"`
	Attendance         float64   `db:"attendance" json:"attendance"`
	HomeworkCompletion float64   `db:"homework_completion" json:"homework_completion"`
	ClassParticipation float64   `db:"class_participation" json:"class_participation"`
	TotalScore         float64   `db:"total_score" json:"total_score"`
	RankInGroup        int       `db:"rank_in_group" json:"rank_in_group"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// RatingFacts carries the raw counters re-derived from the authoritative
// homework, attendance and participation records for one (student, group).
type RatingFacts struct {
	TotalHomeworks     int
	CompletedHomeworks int
	AverageGrade       float64
	TotalClasses       int
	AttendedClasses    int
	ParticipationCount int
}

// RatingFilter scopes rating listing queries.
type RatingFilter struct {
	StudentID string
	GroupID   string
}

// RankAssignment pairs a rating row with its newly resolved rank for
// the batch persist step.
type RankAssignment struct {
	RatingID string
	Rank     int
	Version  int
}
