package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

// AttendanceRepository persists class-session attendance records, the
// authoritative source of the attendance counters.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// BulkUpsert writes a session's attendance rows in one transaction.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO attendance_records (id, group_id, student_id, session_date, status, notes, recorded_by, created_at, updated_at)
        VALUES (:id, :group_id, :student_id, :session_date, :status, :notes, :recorded_by, :created_at, :updated_at)
        ON CONFLICT (group_id, student_id, session_date)
        DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance: %w", err)
	}
	return nil
}

// List returns attendance records matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := `SELECT id, group_id, student_id, session_date, status, notes, recorded_by, created_at, updated_at
        FROM attendance_records WHERE 1=1`
	var args []interface{}
	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND group_id = $%d", len(args)+1)
		args = append(args, filter.GroupID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND session_date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND session_date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	query += " ORDER BY session_date DESC"
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// FactsFor aggregates a student's attendance counters inside a group.
func (r *AttendanceRepository) FactsFor(ctx context.Context, studentID, groupID string) (*models.AttendanceFacts, error) {
	const query = `SELECT COUNT(*) AS total_classes,
        COUNT(*) FILTER (WHERE status = 'H') AS attended_classes
        FROM attendance_records WHERE student_id = $1 AND group_id = $2`
	var facts models.AttendanceFacts
	if err := r.db.GetContext(ctx, &facts, query, studentID, groupID); err != nil {
		return nil, fmt.Errorf("attendance facts: %w", err)
	}
	return &facts, nil
}
