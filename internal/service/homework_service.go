package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/jobs"
)

type homeworkRepo interface {
	Create(ctx context.Context, homework *models.Homework) error
	FindByID(ctx context.Context, id string) (*models.Homework, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Homework, error)
	UpsertSubmission(ctx context.Context, submission *models.HomeworkSubmission) error
	FindSubmission(ctx context.Context, id string) (*models.HomeworkSubmission, error)
	GradeSubmission(ctx context.Context, id string, grade float64, feedback *string, gradedBy string) error
}

type ratingRecomputer interface {
	Recompute(ctx context.Context, studentID, groupID string) (*models.Rating, error)
}

type resolveQueue interface {
	Enqueue(job jobs.Job) error
}

// JobTypeResolveGroup re-ranks a group in the background after a fact
// mutation changed one of its ratings.
const JobTypeResolveGroup = "resolve_group"

// CreateHomeworkRequest is the teacher payload for a new assignment.
type CreateHomeworkRequest struct {
	GroupID     string     `json:"group_id" validate:"required"`
	TeacherID   string     `json:"-"`
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	MaxGrade    float64    `json:"max_grade" validate:"required,gt=0"`
}

// SubmitHomeworkRequest is the student submission payload.
type SubmitHomeworkRequest struct {
	HomeworkID string  `json:"homework_id" validate:"required"`
	StudentID  string  `json:"-"`
	Content    *string `json:"content"`
}

// GradeSubmissionRequest is the teacher grading payload.
type GradeSubmissionRequest struct {
	SubmissionID string  `json:"submission_id" validate:"required"`
	Grade        float64 `json:"grade" validate:"min=0"`
	Feedback     *string `json:"feedback"`
	GradedBy     string  `json:"-"`
}

// HomeworkService manages assignments and submissions. Grading feeds
// the rating engine: each graded submission recomputes the student's
// rating and queues a background group re-rank.
type HomeworkService struct {
	homeworks   homeworkRepo
	memberships membershipChecker
	ratings     ratingRecomputer
	queue       resolveQueue

	validator *validator.Validate
	logger    *zap.Logger
}

// NewHomeworkService constructs HomeworkService.
func NewHomeworkService(homeworks homeworkRepo, memberships membershipChecker, ratings ratingRecomputer, queue resolveQueue, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{
		homeworks:   homeworks,
		memberships: memberships,
		ratings:     ratings,
		queue:       queue,
		validator:   validate,
		logger:      logger,
	}
}

// Create registers a new assignment.
func (s *HomeworkService) Create(ctx context.Context, req CreateHomeworkRequest) (*models.Homework, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	homework := &models.Homework{
		GroupID:     req.GroupID,
		TeacherID:   req.TeacherID,
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		MaxGrade:    req.MaxGrade,
	}
	if err := s.homeworks.Create(ctx, homework); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}
	return homework, nil
}

// ListByGroup returns a group's assignments.
func (s *HomeworkService) ListByGroup(ctx context.Context, groupID string) ([]models.Homework, error) {
	homeworks, err := s.homeworks.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homeworks")
	}
	return homeworks, nil
}

// Submit stores a student's submission. Submissions after the deadline
// are accepted but flagged late.
func (s *HomeworkService) Submit(ctx context.Context, req SubmitHomeworkRequest) (*models.HomeworkSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	homework, err := s.homeworks.FindByID(ctx, req.HomeworkID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	member, err := s.memberships.IsMember(ctx, homework.GroupID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student not in homework group")
	}

	status := models.SubmissionStatusSubmitted
	if homework.Deadline != nil && time.Now().UTC().After(*homework.Deadline) {
		status = models.SubmissionStatusLate
	}
	submission := &models.HomeworkSubmission{
		HomeworkID: req.HomeworkID,
		StudentID:  req.StudentID,
		Content:    req.Content,
		Status:     status,
	}
	if err := s.homeworks.UpsertSubmission(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	return submission, nil
}

// Grade records a grade for a submission, recomputes the student's
// rating and queues the group re-rank.
func (s *HomeworkService) Grade(ctx context.Context, req GradeSubmissionRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading payload")
	}
	submission, err := s.homeworks.FindSubmission(ctx, req.SubmissionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	homework, err := s.homeworks.FindByID(ctx, submission.HomeworkID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	if req.Grade < 0 || req.Grade > homework.MaxGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade out of range")
	}
	if err := s.homeworks.GradeSubmission(ctx, req.SubmissionID, req.Grade, req.Feedback, req.GradedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	rating, err := s.ratings.Recompute(ctx, submission.StudentID, homework.GroupID)
	if err != nil {
		return nil, err
	}
	s.enqueueResolve(homework.GroupID)
	return rating, nil
}

func (s *HomeworkService) enqueueResolve(groupID string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeResolveGroup, Payload: groupID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue group resolve", zap.String("group_id", groupID), zap.Error(err))
	}
}
