package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

// ParticipationRepository persists class-participation entries.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs a participation repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Create inserts a participation entry.
func (r *ParticipationRepository) Create(ctx context.Context, record *models.ParticipationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO participation_records (id, group_id, student_id, date, description, recorded_by, created_at)
        VALUES (:id, :group_id, :student_id, :date, :description, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// List returns participation entries matching the filter.
func (r *ParticipationRepository) List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationRecord, error) {
	query := `SELECT id, group_id, student_id, date, description, recorded_by, created_at FROM participation_records WHERE 1=1`
	var args []interface{}
	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND group_id = $%d", len(args)+1)
		args = append(args, filter.GroupID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	query += " ORDER BY date DESC"
	var records []models.ParticipationRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list participation: %w", err)
	}
	return records, nil
}

// CountFor returns a student's participation tally inside a group.
func (r *ParticipationRepository) CountFor(ctx context.Context, studentID, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM participation_records WHERE student_id = $1 AND group_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, groupID); err != nil {
		return 0, fmt.Errorf("count participation: %w", err)
	}
	return count, nil
}
