package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type competitionRepo interface {
	Create(ctx context.Context, competition *models.Competition) error
	FindByID(ctx context.Context, id string) (*models.Competition, error)
	List(ctx context.Context, status *models.CompetitionStatus) ([]models.Competition, error)
	UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus) error
	RegisterParticipant(ctx context.Context, participant *models.CompetitionParticipant) error
	RecordSubmission(ctx context.Context, competitionID, userID string, score float64) error
	ListParticipants(ctx context.Context, competitionID string) ([]models.CompetitionParticipant, error)
	InsertWinner(ctx context.Context, winner *models.CompetitionWinner) error
	ListWinners(ctx context.Context, competitionID string) ([]models.CompetitionWinner, error)
}

type prizeCrediter interface {
	Credit(ctx context.Context, userID string, amount int, source models.PointsSource) (int, error)
}

// CompetitionService runs contests: registration, submissions and the
// trusted winner assignment whose prizes feed the points ledger.
type CompetitionService struct {
	competitions competitionRepo
	prizes       prizeCrediter
	notifier     eventNotifier

	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompetitionService constructs CompetitionService.
func NewCompetitionService(competitions competitionRepo, prizes prizeCrediter, notifier eventNotifier, validate *validator.Validate, logger *zap.Logger) *CompetitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompetitionService{
		competitions: competitions,
		prizes:       prizes,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
	}
}

// Create registers a competition.
func (s *CompetitionService) Create(ctx context.Context, competition *models.Competition) (*models.Competition, error) {
	if competition.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title required")
	}
	if !competition.EndsAt.After(competition.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "competition must end after it starts")
	}
	if competition.Status == "" {
		competition.Status = models.CompetitionStatusUpcoming
	}
	if err := s.competitions.Create(ctx, competition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create competition")
	}
	return competition, nil
}

// Get returns a competition with its field and podium.
func (s *CompetitionService) Get(ctx context.Context, id string) (*models.Competition, []models.CompetitionParticipant, []models.CompetitionWinner, error) {
	competition, err := s.competitions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	participants, err := s.competitions.ListParticipants(ctx, id)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	winners, err := s.competitions.ListWinners(ctx, id)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list winners")
	}
	return competition, participants, winners, nil
}

// List returns competitions, optionally filtered by status.
func (s *CompetitionService) List(ctx context.Context, status *models.CompetitionStatus) ([]models.Competition, error) {
	competitions, err := s.competitions.List(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list competitions")
	}
	return competitions, nil
}

// Register enrolls a user once in a competition that has not finished.
func (s *CompetitionService) Register(ctx context.Context, competitionID, userID string) error {
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	if competition.Status == models.CompetitionStatusFinished {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "competition already finished")
	}
	participant := &models.CompetitionParticipant{CompetitionID: competitionID, UserID: userID}
	if err := s.competitions.RegisterParticipant(ctx, participant); err != nil {
		if appErr, ok := err.(*appErrors.Error); ok {
			return appErrors.Clone(appErr, "already registered")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register participant")
	}
	return nil
}

// RecordSubmission counts an entry submission for an active competition.
func (s *CompetitionService) RecordSubmission(ctx context.Context, competitionID, userID string, score float64) error {
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	if competition.Status != models.CompetitionStatusActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "competition not active")
	}
	if err := s.competitions.RecordSubmission(ctx, competitionID, userID, score); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "participant not registered")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}
	return nil
}

// UpdateStatus moves a competition through its lifecycle.
func (s *CompetitionService) UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus) error {
	if err := s.competitions.UpdateStatus(ctx, id, status); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update competition")
	}
	return nil
}

// AssignWinners records the trusted podium, credits each prize through
// the points ledger, and closes the competition.
func (s *CompetitionService) AssignWinners(ctx context.Context, competitionID string, assignments []models.WinnerAssignment) ([]models.CompetitionWinner, error) {
	if len(assignments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one winner required")
	}
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}

	winners := make([]models.CompetitionWinner, 0, len(assignments))
	for _, assignment := range assignments {
		if err := s.validator.Struct(assignment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid winner assignment")
		}
		winner := &models.CompetitionWinner{
			CompetitionID: competitionID,
			UserID:        assignment.UserID,
			Position:      assignment.Position,
			PrizePoints:   assignment.PrizePoints,
		}
		if err := s.competitions.InsertWinner(ctx, winner); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record winner")
		}
		if assignment.PrizePoints > 0 {
			if _, err := s.prizes.Credit(ctx, assignment.UserID, assignment.PrizePoints, models.PointsSourceCompetition); err != nil {
				return nil, err
			}
		}
		if s.notifier != nil {
			s.notifier.Notify(ctx, assignment.UserID, models.EventCompetitionPrize, map[string]interface{}{
				"competition_id": competitionID,
				"title":          competition.Title,
				"position":       assignment.Position,
				"prize_points":   assignment.PrizePoints,
			})
		}
		winners = append(winners, *winner)
	}

	if competition.Status != models.CompetitionStatusFinished {
		if err := s.competitions.UpdateStatus(ctx, competitionID, models.CompetitionStatusFinished); err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close competition")
		}
	}
	return winners, nil
}
