package models

import "time"

// PointsSource identifies where a points credit came from.
type PointsSource string

const (
	PointsSourceBonusTask   PointsSource = "BONUS_TASK"
	PointsSourceCompetition PointsSource = "COMPETITION"
	PointsSourceManual      PointsSource = "MANUAL"
)

// AchievementThresholds are the completed-task counts that append a
// milestone badge. Checked for equality, not threshold-or-above, so a
// badge fires exactly once.
var AchievementThresholds = []int{1, 5, 10}

// BonusTask is an extra-credit task students can complete once each.
type BonusTask struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Points      int       `db:"points" json:"points"`
	Active      bool      `db:"active" json:"active"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BonusTaskCompletion records that a student completed a task.
// Unique on (user_id, task_id); this is the ledger's idempotence key.
type BonusTaskCompletion struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	TaskID       string    `db:"task_id" json:"task_id"`
	Proof        *string   `db:"proof" json:"proof,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	PointsEarned int       `db:"points_earned" json:"points_earned"`
	CompletedAt  time.Time `db:"completed_at" json:"completed_at"`
}

// Achievement is an append-only milestone badge derived from the
// completed-task count.
type Achievement struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Milestone int       `db:"milestone" json:"milestone"`
	Title     string    `db:"title" json:"title"`
	EarnedAt  time.Time `db:"earned_at" json:"earned_at"`
}

// PointsSummary bundles a student's balance with its history for the
// student points endpoint.
type PointsSummary struct {
	UserID       string                `json:"user_id"`
	Balance      int                   `json:"balance"`
	Completions  []BonusTaskCompletion `json:"completed_bonus_tasks"`
	Achievements []Achievement         `json:"achievements"`
}

// BonusTaskResult is returned by the complete-bonus-task operation.
type BonusTaskResult struct {
	PointsEarned    int           `json:"points_earned"`
	TotalPoints     int           `json:"total_points"`
	NewAchievements []Achievement `json:"new_achievements"`
}
