package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

// RewardRepository persists the reward catalog and claim records.
type RewardRepository struct {
	db *sqlx.DB
}

// NewRewardRepository constructs a reward repository.
func NewRewardRepository(db *sqlx.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// Create inserts a catalog entry.
func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	if reward.ID == "" {
		reward.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = now
	}
	reward.UpdatedAt = now
	const query = `INSERT INTO rewards (id, name, description, points_required, order_num, active, created_at, updated_at)
        VALUES (:id, :name, :description, :points_required, :order_num, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reward); err != nil {
		return fmt.Errorf("create reward: %w", err)
	}
	return nil
}

// List returns the catalog ordered by unlock position.
func (r *RewardRepository) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	query := `SELECT id, name, description, points_required, order_num, active, created_at, updated_at FROM rewards`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY order_num ASC`
	var rewards []models.Reward
	if err := r.db.SelectContext(ctx, &rewards, query); err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	return rewards, nil
}

// FindByID returns a reward by identifier.
func (r *RewardRepository) FindByID(ctx context.Context, id string) (*models.Reward, error) {
	const query = `SELECT id, name, description, points_required, order_num, active, created_at, updated_at FROM rewards WHERE id = $1 LIMIT 1`
	var reward models.Reward
	if err := r.db.GetContext(ctx, &reward, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reward: %w", err)
	}
	return &reward, nil
}

// FindByOrder returns the reward occupying a chain position.
func (r *RewardRepository) FindByOrder(ctx context.Context, orderNum int) (*models.Reward, error) {
	const query = `SELECT id, name, description, points_required, order_num, active, created_at, updated_at FROM rewards WHERE order_num = $1 LIMIT 1`
	var reward models.Reward
	if err := r.db.GetContext(ctx, &reward, query, orderNum); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reward by order: %w", err)
	}
	return &reward, nil
}

// FindClaim returns the claim for a (reward, user) pair.
func (r *RewardRepository) FindClaim(ctx context.Context, rewardID, userID string) (*models.RewardClaim, error) {
	const query = `SELECT id, reward_id, user_id, status, claimed_at, updated_at FROM reward_claims WHERE reward_id = $1 AND user_id = $2 LIMIT 1`
	var claim models.RewardClaim
	if err := r.db.GetContext(ctx, &claim, query, rewardID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find claim: %w", err)
	}
	return &claim, nil
}

// ListClaims returns every claim for a reward, oldest first.
func (r *RewardRepository) ListClaims(ctx context.Context, rewardID string) ([]models.RewardClaim, error) {
	const query = `SELECT id, reward_id, user_id, status, claimed_at, updated_at FROM reward_claims WHERE reward_id = $1 ORDER BY claimed_at ASC`
	var claims []models.RewardClaim
	if err := r.db.SelectContext(ctx, &claims, query, rewardID); err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// ClaimWithDebit inserts the claim record and debits the reward's cost
// in a single transaction. Neither side can commit without the other:
// a duplicate claim aborts with ErrAlreadyClaimed, a balance that no
// longer covers the cost aborts with ErrInsufficientPoints.
func (r *RewardRepository) ClaimWithDebit(ctx context.Context, claim *models.RewardClaim, pointsRequired int) (int, error) {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if claim.ClaimedAt.IsZero() {
		claim.ClaimedAt = now
	}
	claim.UpdatedAt = now
	if claim.Status == "" {
		claim.Status = models.ClaimStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}

	const insertQuery = `INSERT INTO reward_claims (id, reward_id, user_id, status, claimed_at, updated_at)
        VALUES (:id, :reward_id, :user_id, :status, :claimed_at, :updated_at)
        ON CONFLICT (reward_id, user_id) DO NOTHING`
	res, err := tx.NamedExecContext(ctx, insertQuery, claim)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("insert claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("insert claim affected rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return 0, appErrors.ErrAlreadyClaimed
	}

	const debitQuery = `UPDATE users SET points = points - $2, updated_at = $3 WHERE id = $1 AND points >= $2 RETURNING points`
	var balance int
	if err := tx.GetContext(ctx, &balance, debitQuery, claim.UserID, pointsRequired, now); err != nil {
		tx.Rollback() //nolint:errcheck
		if err == sql.ErrNoRows {
			return 0, appErrors.ErrInsufficientPoints
		}
		return 0, fmt.Errorf("debit claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	return balance, nil
}

// UpdateClaimStatus moves a claim's status forward.
func (r *RewardRepository) UpdateClaimStatus(ctx context.Context, rewardID, userID string, status models.ClaimStatus) error {
	const query = `UPDATE reward_claims SET status = $3, updated_at = $4 WHERE reward_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, rewardID, userID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim status affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
