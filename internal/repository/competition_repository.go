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

// CompetitionRepository persists competitions, entrants and winners.
type CompetitionRepository struct {
	db *sqlx.DB
}

// NewCompetitionRepository constructs a competition repository.
func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

// Create inserts a competition.
func (r *CompetitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	if competition.ID == "" {
		competition.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if competition.CreatedAt.IsZero() {
		competition.CreatedAt = now
	}
	competition.UpdatedAt = now
	const query = `INSERT INTO competitions (id, title, description, status, starts_at, ends_at, created_by, created_at, updated_at)
        VALUES (:id, :title, :description, :status, :starts_at, :ends_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, competition); err != nil {
		return fmt.Errorf("create competition: %w", err)
	}
	return nil
}

// FindByID returns a competition by identifier.
func (r *CompetitionRepository) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	const query = `SELECT id, title, description, status, starts_at, ends_at, created_by, created_at, updated_at
        FROM competitions WHERE id = $1 LIMIT 1`
	var competition models.Competition
	if err := r.db.GetContext(ctx, &competition, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find competition: %w", err)
	}
	return &competition, nil
}

// List returns competitions, newest start date first.
func (r *CompetitionRepository) List(ctx context.Context, status *models.CompetitionStatus) ([]models.Competition, error) {
	query := `SELECT id, title, description, status, starts_at, ends_at, created_by, created_at, updated_at FROM competitions`
	var args []interface{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY starts_at DESC"
	var competitions []models.Competition
	if err := r.db.SelectContext(ctx, &competitions, query, args...); err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	return competitions, nil
}

// UpdateStatus moves a competition through its lifecycle.
func (r *CompetitionRepository) UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus) error {
	const query = `UPDATE competitions SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update competition status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update competition status affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RegisterParticipant enrolls a user once. A repeat registration
// returns ErrAlreadyCompleted.
func (r *CompetitionRepository) RegisterParticipant(ctx context.Context, participant *models.CompetitionParticipant) error {
	if participant.ID == "" {
		participant.ID = uuid.NewString()
	}
	if participant.RegisteredAt.IsZero() {
		participant.RegisteredAt = time.Now().UTC()
	}
	const query = `INSERT INTO competition_participants (id, competition_id, user_id, score, submissions, registered_at)
        VALUES (:id, :competition_id, :user_id, :score, :submissions, :registered_at)
        ON CONFLICT (competition_id, user_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, participant)
	if err != nil {
		return fmt.Errorf("register participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("register participant affected rows: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrAlreadyCompleted
	}
	return nil
}

// RecordSubmission bumps a participant's submission count and score.
func (r *CompetitionRepository) RecordSubmission(ctx context.Context, competitionID, userID string, score float64) error {
	const query = `UPDATE competition_participants
        SET submissions = submissions + 1, score = GREATEST(score, $3)
        WHERE competition_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, competitionID, userID, score)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record submission affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListParticipants returns the field, best score first.
func (r *CompetitionRepository) ListParticipants(ctx context.Context, competitionID string) ([]models.CompetitionParticipant, error) {
	const query = `SELECT id, competition_id, user_id, score, submissions, registered_at
        FROM competition_participants WHERE competition_id = $1 ORDER BY score DESC, registered_at ASC`
	var participants []models.CompetitionParticipant
	if err := r.db.SelectContext(ctx, &participants, query, competitionID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// InsertWinner records a podium position. A position already taken in
// the competition is ignored.
func (r *CompetitionRepository) InsertWinner(ctx context.Context, winner *models.CompetitionWinner) error {
	if winner.ID == "" {
		winner.ID = uuid.NewString()
	}
	if winner.AwardedAt.IsZero() {
		winner.AwardedAt = time.Now().UTC()
	}
	const query = `INSERT INTO competition_winners (id, competition_id, user_id, position, prize_points, awarded_at)
        VALUES (:id, :competition_id, :user_id, :position, :prize_points, :awarded_at)
        ON CONFLICT (competition_id, position) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, winner); err != nil {
		return fmt.Errorf("insert winner: %w", err)
	}
	return nil
}

// ListWinners returns the podium ordered by position.
func (r *CompetitionRepository) ListWinners(ctx context.Context, competitionID string) ([]models.CompetitionWinner, error) {
	const query = `SELECT id, competition_id, user_id, position, prize_points, awarded_at
        FROM competition_winners WHERE competition_id = $1 ORDER BY position ASC`
	var winners []models.CompetitionWinner
	if err := r.db.SelectContext(ctx, &winners, query, competitionID); err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	return winners, nil
}
