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

// HomeworkRepository persists homework assignments and submissions.
// The aggregated submission counters are the authoritative homework
// facts the score aggregator re-derives from.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs a homework repository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// Create inserts a homework assignment.
func (r *HomeworkRepository) Create(ctx context.Context, homework *models.Homework) error {
	if homework.ID == "" {
		homework.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if homework.CreatedAt.IsZero() {
		homework.CreatedAt = now
	}
	homework.UpdatedAt = now
	const query = `INSERT INTO homeworks (id, group_id, teacher_id, title, description, deadline, max_grade, created_at, updated_at)
        VALUES (:id, :group_id, :teacher_id, :title, :description, :deadline, :max_grade, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, homework); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// FindByID returns a homework by identifier.
func (r *HomeworkRepository) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	const query = `SELECT id, group_id, teacher_id, title, description, deadline, max_grade, created_at, updated_at FROM homeworks WHERE id = $1 LIMIT 1`
	var homework models.Homework
	if err := r.db.GetContext(ctx, &homework, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find homework: %w", err)
	}
	return &homework, nil
}

// ListByGroup returns a group's homeworks, newest first.
func (r *HomeworkRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Homework, error) {
	const query = `SELECT id, group_id, teacher_id, title, description, deadline, max_grade, created_at, updated_at
        FROM homeworks WHERE group_id = $1 ORDER BY created_at DESC`
	var homeworks []models.Homework
	if err := r.db.SelectContext(ctx, &homeworks, query, groupID); err != nil {
		return nil, fmt.Errorf("list homeworks: %w", err)
	}
	return homeworks, nil
}

// UpsertSubmission inserts or replaces a student's submission.
func (r *HomeworkRepository) UpsertSubmission(ctx context.Context, submission *models.HomeworkSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO homework_submissions (id, homework_id, student_id, content, status, grade, feedback, graded_by, submitted_at, graded_at)
        VALUES (:id, :homework_id, :student_id, :content, :status, :grade, :feedback, :graded_by, :submitted_at, :graded_at)
        ON CONFLICT (homework_id, student_id)
        DO UPDATE SET content = EXCLUDED.content, status = EXCLUDED.status, submitted_at = EXCLUDED.submitted_at`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// FindSubmission returns a submission by identifier.
func (r *HomeworkRepository) FindSubmission(ctx context.Context, id string) (*models.HomeworkSubmission, error) {
	const query = `SELECT id, homework_id, student_id, content, status, grade, feedback, graded_by, submitted_at, graded_at
        FROM homework_submissions WHERE id = $1 LIMIT 1`
	var submission models.HomeworkSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// GradeSubmission records the teacher's grade and feedback.
func (r *HomeworkRepository) GradeSubmission(ctx context.Context, id string, grade float64, feedback *string, gradedBy string) error {
	const query = `UPDATE homework_submissions SET grade = $2, feedback = $3, graded_by = $4, status = $5, graded_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, grade, feedback, gradedBy, models.SubmissionStatusGraded, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grade submission affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FactsFor aggregates a student's homework counters inside a group.
// Percentages are never stored here; the aggregator derives them from
// these from-scratch counts.
func (r *HomeworkRepository) FactsFor(ctx context.Context, studentID, groupID string) (*models.HomeworkFacts, error) {
	const query = `SELECT COUNT(h.id) AS total_homeworks,
        COUNT(s.id) FILTER (WHERE s.status = 'GRADED') AS completed_homeworks,
        COALESCE(AVG(s.grade) FILTER (WHERE s.status = 'GRADED'), 0) AS average_grade
        FROM homeworks h
        LEFT JOIN homework_submissions s ON s.homework_id = h.id AND s.student_id = $1
        WHERE h.group_id = $2`
	var facts models.HomeworkFacts
	if err := r.db.GetContext(ctx, &facts, query, studentID, groupID); err != nil {
		return nil, fmt.Errorf("homework facts: %w", err)
	}
	return &facts, nil
}
