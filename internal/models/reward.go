package models

import "time"

// ClaimStatus tracks a reward claim through fulfilment. Transitions
// only move forward: pending -> delivered or pending -> cancelled.
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "PENDING"
	ClaimStatusDelivered ClaimStatus = "DELIVERED"
	ClaimStatusCancelled ClaimStatus = "CANCELLED"
)

// CanTransitionTo reports whether s may move to next.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	return s == ClaimStatusPending && (next == ClaimStatusDelivered || next == ClaimStatusCancelled)
}

// Reward is a catalog entry students redeem points for. OrderNum is the
// unique sequential position in the unlock chain: order k is claimable
// only after the student holds a claim for order k-1.
type Reward struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    *string   `db:"description" json:"description,omitempty"`
	PointsRequired int       `db:"points_required" json:"points_required"`
	OrderNum       int       `db:"order_num" json:"order"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RewardClaim records a student's claim of a reward. Unique on
// (reward_id, user_id) so a student claims each reward at most once.
type RewardClaim struct {
	ID        string      `db:"id" json:"id"`
	RewardID  string      `db:"reward_id" json:"reward_id"`
	UserID    string      `db:"user_id" json:"user_id"`
	Status    ClaimStatus `db:"status" json:"status"`
	ClaimedAt time.Time   `db:"claimed_at" json:"claimed_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}
