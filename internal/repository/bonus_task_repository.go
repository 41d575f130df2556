package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

// BonusTaskRepository persists the bonus-task catalog.
type BonusTaskRepository struct {
	db *sqlx.DB
}

// NewBonusTaskRepository constructs a bonus-task repository.
func NewBonusTaskRepository(db *sqlx.DB) *BonusTaskRepository {
	return &BonusTaskRepository{db: db}
}

// Create inserts a bonus task.
func (r *BonusTaskRepository) Create(ctx context.Context, task *models.BonusTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	const query = `INSERT INTO bonus_tasks (id, title, description, points, active, created_by, created_at, updated_at)
        VALUES (:id, :title, :description, :points, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create bonus task: %w", err)
	}
	return nil
}

// FindByID returns a bonus task by identifier.
func (r *BonusTaskRepository) FindByID(ctx context.Context, id string) (*models.BonusTask, error) {
	const query = `SELECT id, title, description, points, active, created_by, created_at, updated_at FROM bonus_tasks WHERE id = $1 LIMIT 1`
	var task models.BonusTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find bonus task: %w", err)
	}
	return &task, nil
}

// List returns the catalog, optionally restricted to active tasks.
func (r *BonusTaskRepository) List(ctx context.Context, activeOnly bool) ([]models.BonusTask, error) {
	query := `SELECT id, title, description, points, active, created_by, created_at, updated_at FROM bonus_tasks`
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY created_at DESC"
	var tasks []models.BonusTask
	if err := r.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, fmt.Errorf("list bonus tasks: %w", err)
	}
	return tasks, nil
}

// SetActive enables or disables a task.
func (r *BonusTaskRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE bonus_tasks SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set bonus task active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set bonus task active affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
