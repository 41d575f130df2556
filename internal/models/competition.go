package models

import "time"

// CompetitionStatus tracks a competition through its lifecycle.
type CompetitionStatus string

const (
	CompetitionStatusUpcoming CompetitionStatus = "UPCOMING"
	CompetitionStatusActive   CompetitionStatus = "ACTIVE"
	CompetitionStatusFinished CompetitionStatus = "FINISHED"
)

// Competition is an organized contest students register for. Winner
// prizes feed the points ledger as credits.
type Competition struct {
	ID          string            `db:"id" json:"id"`
	Title       string            `db:"title" json:"title"`
	Description *string           `db:"description" json:"description,omitempty"`
	Status      CompetitionStatus `db:"status" json:"status"`
	StartsAt    time.Time         `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time         `db:"ends_at" json:"ends_at"`
	CreatedBy   string            `db:"created_by" json:"created_by"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// CompetitionParticipant is a registered entrant. Unique on
// (competition_id, user_id).
type CompetitionParticipant struct {
	ID            string    `db:"id" json:"id"`
	CompetitionID string    `db:"competition_id" json:"competition_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Score         float64   `db:"score" json:"score"`
	Submissions   int       `db:"submissions" json:"submissions"`
	RegisteredAt  time.Time `db:"registered_at" json:"registered_at"`
}

// CompetitionWinner records a podium position and its prize points.
type CompetitionWinner struct {
	ID            string    `db:"id" json:"id"`
	CompetitionID string    `db:"competition_id" json:"competition_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Position      int       `db:"position" json:"position"`
	PrizePoints   int       `db:"prize_points" json:"prize_points"`
	AwardedAt     time.Time `db:"awarded_at" json:"awarded_at"`
}

// WinnerAssignment is the trusted teacher/admin input naming winners.
type WinnerAssignment struct {
	UserID      string `json:"user_id" validate:"required"`
	Position    int    `json:"position" validate:"required,min=1"`
	PrizePoints int    `json:"prize_points" validate:"required,min=0"`
}
