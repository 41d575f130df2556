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

const ratingColumns = `id, student_id, group_id, grades, attendance, homework_completion, class_participation,
        total_score, rank_in_group, total_homeworks, completed_homeworks, total_classes, attended_classes,
        participation_count, average_grade, version, created_at, updated_at`

// RatingRepository persists per-student-per-group rating rows.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs a rating repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// FindByStudentAndGroup returns the rating row for a (student, group) pair.
func (r *RatingRepository) FindByStudentAndGroup(ctx context.Context, studentID, groupID string) (*models.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE student_id = $1 AND group_id = $2 LIMIT 1`, ratingColumns)
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, studentID, groupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rating, nil
}

// Create inserts a zeroed rating row for a new group member.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	rating.UpdatedAt = now
	rating.Version = 1
	const query = `INSERT INTO ratings (id, student_id, group_id, grades, attendance, homework_completion, class_participation,
        total_score, rank_in_group, total_homeworks, completed_homeworks, total_classes, attended_classes,
        participation_count, average_grade, version, created_at, updated_at)
        VALUES (:id, :student_id, :group_id, :grades, :attendance, :homework_completion, :class_participation,
        :total_score, :rank_in_group, :total_homeworks, :completed_homeworks, :total_classes, :attended_classes,
        :participation_count, :average_grade, :version, :created_at, :updated_at)
        ON CONFLICT (student_id, group_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

// UpdateWithVersion persists a recomputed rating guarded by its version
// stamp. It returns sql.ErrNoRows when the stored version moved on, so
// the caller can reload and retry.
func (r *RatingRepository) UpdateWithVersion(ctx context.Context, rating *models.Rating) error {
	rating.UpdatedAt = time.Now().UTC()
	const query = `UPDATE ratings SET grades = :grades, attendance = :attendance, homework_completion = :homework_completion,
        class_participation = :class_participation, total_score = :total_score,
        total_homeworks = :total_homeworks, completed_homeworks = :completed_homeworks,
        total_classes = :total_classes, attended_classes = :attended_classes,
        participation_count = :participation_count, average_grade = :average_grade,
        version = :version + 1, updated_at = :updated_at
        WHERE id = :id AND version = :version`
	res, err := r.db.NamedExecContext(ctx, query, rating)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rating affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	rating.Version++
	return nil
}

// ListByGroup returns every rating in the group in insertion order.
// The secondary id sort keeps ordering deterministic when two students
// joined within the same timestamp tick.
func (r *RatingRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE group_id = $1 ORDER BY created_at ASC, id ASC`, ratingColumns)
	var ratings []models.Rating
	if err := r.db.SelectContext(ctx, &ratings, query, groupID); err != nil {
		return nil, fmt.Errorf("list ratings by group: %w", err)
	}
	return ratings, nil
}

// UpdateRanks batch-persists resolved rank positions in one transaction.
func (r *RatingRepository) UpdateRanks(ctx context.Context, assignments []models.RankAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `UPDATE ratings SET rank_in_group = $2, updated_at = $3 WHERE id = $1`
	now := time.Now().UTC()
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, query, a.RatingID, a.Rank, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("update rank: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ranks: %w", err)
	}
	return nil
}

// AppendMonthlySnapshot writes the once-per-period historical snapshot.
// A snapshot that already exists for the period is left untouched.
func (r *RatingRepository) AppendMonthlySnapshot(ctx context.Context, stat *models.RatingMonthlyStat) error {
	if stat.ID == "" {
		stat.ID = uuid.NewString()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO rating_monthly_stats (id, rating_id, year, month, grades, attendance, homework_completion,
        class_participation, total_score, rank_in_group, created_at)
        VALUES (:id, :rating_id, :year, :month, :grades, :attendance, :homework_completion,
        :class_participation, :total_score, :rank_in_group, :created_at)
        ON CONFLICT (rating_id, year, month) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, stat); err != nil {
		return fmt.Errorf("append monthly snapshot: %w", err)
	}
	return nil
}

// ListMonthlyStats returns a rating's historical snapshots, oldest first.
func (r *RatingRepository) ListMonthlyStats(ctx context.Context, ratingID string) ([]models.RatingMonthlyStat, error) {
	const query = `SELECT id, rating_id, year, month, grades, attendance, homework_completion, class_participation,
        total_score, rank_in_group, created_at
        FROM rating_monthly_stats WHERE rating_id = $1 ORDER BY year ASC, month ASC`
	var stats []models.RatingMonthlyStat
	if err := r.db.SelectContext(ctx, &stats, query, ratingID); err != nil {
		return nil, fmt.Errorf("list monthly stats: %w", err)
	}
	return stats, nil
}
