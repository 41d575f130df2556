package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/jobs"
)

type participationRepo interface {
	Create(ctx context.Context, record *models.ParticipationRecord) error
	List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationRecord, error)
}

// RecordParticipationRequest marks a class-participation entry.
type RecordParticipationRequest struct {
	GroupID     string    `json:"group_id" validate:"required"`
	StudentID   string    `json:"student_id" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Description *string   `json:"description"`
	RecordedBy  string    `json:"-"`
}

// ParticipationService records teacher-observed class participation,
// the fact source for the classParticipation rating component.
type ParticipationService struct {
	participation participationRepo
	memberships   membershipChecker
	ratings       ratingRecomputer
	queue         resolveQueue

	validator *validator.Validate
	logger    *zap.Logger
}

// NewParticipationService constructs ParticipationService.
func NewParticipationService(participation participationRepo, memberships membershipChecker, ratings ratingRecomputer, queue resolveQueue, validate *validator.Validate, logger *zap.Logger) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipationService{
		participation: participation,
		memberships:   memberships,
		ratings:       ratings,
		queue:         queue,
		validator:     validate,
		logger:        logger,
	}
}

// Record appends a participation entry, recomputes the rating and
// queues the group re-rank.
func (s *ParticipationService) Record(ctx context.Context, req RecordParticipationRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid participation payload")
	}
	member, err := s.memberships.IsMember(ctx, req.GroupID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not in group")
	}

	record := &models.ParticipationRecord{
		GroupID:     req.GroupID,
		StudentID:   req.StudentID,
		Date:        req.Date,
		Description: req.Description,
		RecordedBy:  req.RecordedBy,
	}
	if err := s.participation.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store participation")
	}

	rating, err := s.ratings.Recompute(ctx, req.StudentID, req.GroupID)
	if err != nil {
		return nil, err
	}
	if s.queue != nil {
		job := jobs.Job{ID: uuid.NewString(), Type: JobTypeResolveGroup, Payload: req.GroupID}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue group resolve", zap.String("group_id", req.GroupID), zap.Error(err))
		}
	}
	return rating, nil
}

// List returns participation entries for the filter.
func (s *ParticipationService) List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationRecord, error) {
	records, err := s.participation.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participation")
	}
	return records, nil
}
