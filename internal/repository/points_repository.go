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

// PointsRepository handles the point balance, bonus-task completions
// and achievements for users.
type PointsRepository struct {
	db *sqlx.DB
}

// NewPointsRepository constructs a points repository.
func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// Balance returns the current point balance for a user.
func (r *PointsRepository) Balance(ctx context.Context, userID string) (int, error) {
	const query = `SELECT points FROM users WHERE id = $1`
	var balance int
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// Credit atomically increments a user's balance and returns the new value.
func (r *PointsRepository) Credit(ctx context.Context, userID string, amount int) (int, error) {
	const query = `UPDATE users SET points = points + $2, updated_at = $3 WHERE id = $1 RETURNING points`
	var balance int
	if err := r.db.GetContext(ctx, &balance, query, userID, amount, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("credit points: %w", err)
	}
	return balance, nil
}

// Debit decrements the balance only when it covers the amount. The
// conditional update is the non-negativity guard: no matching row means
// the balance was too low, reported as ErrInsufficientPoints.
func (r *PointsRepository) Debit(ctx context.Context, userID string, amount int) (int, error) {
	const query = `UPDATE users SET points = points - $2, updated_at = $3 WHERE id = $1 AND points >= $2 RETURNING points`
	var balance int
	if err := r.db.GetContext(ctx, &balance, query, userID, amount, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.ErrInsufficientPoints
		}
		return 0, fmt.Errorf("debit points: %w", err)
	}
	return balance, nil
}

// CreditForTask records a bonus-task completion and credits its points
// in one transaction. The unique (user_id, task_id) index is the
// idempotence key: a duplicate completion aborts with ErrAlreadyCompleted
// and leaves the balance untouched.
func (r *PointsRepository) CreditForTask(ctx context.Context, completion *models.BonusTaskCompletion) (int, error) {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}

	const insertQuery = `INSERT INTO bonus_task_completions (id, user_id, task_id, proof, notes, points_earned, completed_at)
        VALUES (:id, :user_id, :task_id, :proof, :notes, :points_earned, :completed_at)
        ON CONFLICT (user_id, task_id) DO NOTHING`
	res, err := tx.NamedExecContext(ctx, insertQuery, completion)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("insert completion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("insert completion affected rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return 0, appErrors.ErrAlreadyCompleted
	}

	const creditQuery = `UPDATE users SET points = points + $2, updated_at = $3 WHERE id = $1 RETURNING points`
	var balance int
	if err := tx.GetContext(ctx, &balance, creditQuery, completion.UserID, completion.PointsEarned, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		if err == sql.ErrNoRows {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("credit completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit completion: %w", err)
	}
	return balance, nil
}

// CountCompletions returns how many bonus tasks a user has completed.
func (r *PointsRepository) CountCompletions(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM bonus_task_completions WHERE user_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return count, nil
}

// ListCompletions returns a user's completions in completion order.
func (r *PointsRepository) ListCompletions(ctx context.Context, userID string) ([]models.BonusTaskCompletion, error) {
	const query = `SELECT id, user_id, task_id, proof, notes, points_earned, completed_at
        FROM bonus_task_completions WHERE user_id = $1 ORDER BY completed_at ASC, id ASC`
	var completions []models.BonusTaskCompletion
	if err := r.db.SelectContext(ctx, &completions, query, userID); err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

// AppendAchievement stores a milestone badge. An existing badge for the
// same milestone is left untouched so a badge never duplicates.
func (r *PointsRepository) AppendAchievement(ctx context.Context, achievement *models.Achievement) error {
	if achievement.ID == "" {
		achievement.ID = uuid.NewString()
	}
	if achievement.EarnedAt.IsZero() {
		achievement.EarnedAt = time.Now().UTC()
	}
	const query = `INSERT INTO achievements (id, user_id, milestone, title, earned_at)
        VALUES (:id, :user_id, :milestone, :title, :earned_at)
        ON CONFLICT (user_id, milestone) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return fmt.Errorf("append achievement: %w", err)
	}
	return nil
}

// ListAchievements returns a user's badges in earn order.
func (r *PointsRepository) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	const query = `SELECT id, user_id, milestone, title, earned_at FROM achievements WHERE user_id = $1 ORDER BY earned_at ASC, milestone ASC`
	var achievements []models.Achievement
	if err := r.db.SelectContext(ctx, &achievements, query, userID); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}
