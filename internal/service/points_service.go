package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/lock"
)

type pointsRepo interface {
	Balance(ctx context.Context, userID string) (int, error)
	Credit(ctx context.Context, userID string, amount int) (int, error)
	Debit(ctx context.Context, userID string, amount int) (int, error)
	CreditForTask(ctx context.Context, completion *models.BonusTaskCompletion) (int, error)
	CountCompletions(ctx context.Context, userID string) (int, error)
	ListCompletions(ctx context.Context, userID string) ([]models.BonusTaskCompletion, error)
	AppendAchievement(ctx context.Context, achievement *models.Achievement) error
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
}

type bonusTaskRepo interface {
	Create(ctx context.Context, task *models.BonusTask) error
	FindByID(ctx context.Context, id string) (*models.BonusTask, error)
	List(ctx context.Context, activeOnly bool) ([]models.BonusTask, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// CreateBonusTaskRequest is the teacher/admin payload for a new task.
type CreateBonusTaskRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	Points      int     `json:"points" validate:"required,min=1"`
	CreatedBy   string  `json:"-"`
}

// CompleteBonusTaskRequest marks a task done for a student.
type CompleteBonusTaskRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	TaskID string  `json:"task_id" validate:"required"`
	Proof  *string `json:"proof"`
	Notes  *string `json:"notes"`
}

// PointsService is the points ledger: balance credits and debits,
// bonus-task completion with its idempotence key, and milestone
// achievements. Balance mutations are serialized per student.
type PointsService struct {
	points   pointsRepo
	tasks    bonusTaskRepo
	notifier eventNotifier
	locks    *lock.KeyedMutex

	validator *validator.Validate
	logger    *zap.Logger
}

// NewPointsService constructs PointsService.
func NewPointsService(points pointsRepo, tasks bonusTaskRepo, notifier eventNotifier, validate *validator.Validate, logger *zap.Logger) *PointsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsService{
		points:    points,
		tasks:     tasks,
		notifier:  notifier,
		locks:     lock.NewKeyedMutex(),
		validator: validate,
		logger:    logger,
	}
}

func (s *PointsService) lockUser(userID string) func() {
	key := "points:" + userID
	s.locks.Lock(key)
	return func() { s.locks.Unlock(key) }
}

// Credit adds points to a student's balance and returns the new value.
func (s *PointsService) Credit(ctx context.Context, userID string, amount int, source models.PointsSource) (int, error) {
	if amount <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "credit amount must be positive")
	}
	defer s.lockUser(userID)()

	balance, err := s.points.Credit(ctx, userID, amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit points")
	}
	s.notifyBalance(ctx, userID, balance, string(source))
	return balance, nil
}

// Debit removes points from a student's balance. The repository applies
// the conditional decrement, so the balance can never go negative.
func (s *PointsService) Debit(ctx context.Context, userID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "debit amount must be positive")
	}
	defer s.lockUser(userID)()

	balance, err := s.points.Debit(ctx, userID, amount)
	if err != nil {
		if appErr, ok := err.(*appErrors.Error); ok {
			return 0, appErr
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to debit points")
	}
	s.notifyBalance(ctx, userID, balance, reason)
	return balance, nil
}

// CompleteBonusTask records a completion and credits the task's points.
// The task identifier is the sole idempotence key: a repeat completion
// fails with AlreadyCompleted and the balance is untouched. Milestone
// achievements fire when the completed-task count equals a threshold,
// so each badge is appended exactly once.
func (s *PointsService) CompleteBonusTask(ctx context.Context, req CompleteBonusTaskRequest) (*models.BonusTaskResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}

	task, err := s.tasks.FindByID(ctx, req.TaskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bonus task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bonus task")
	}
	if !task.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bonus task not active")
	}

	defer s.lockUser(req.UserID)()

	completion := &models.BonusTaskCompletion{
		UserID:       req.UserID,
		TaskID:       req.TaskID,
		Proof:        req.Proof,
		Notes:        req.Notes,
		PointsEarned: task.Points,
	}
	balance, err := s.points.CreditForTask(ctx, completion)
	if err != nil {
		if appErr, ok := err.(*appErrors.Error); ok {
			return nil, appErr
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}

	newAchievements, err := s.fireAchievements(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	s.notifyBalance(ctx, req.UserID, balance, string(models.PointsSourceBonusTask))
	return &models.BonusTaskResult{
		PointsEarned:    task.Points,
		TotalPoints:     balance,
		NewAchievements: newAchievements,
	}, nil
}

// Summary returns a student's balance with completion and badge history.
func (s *PointsService) Summary(ctx context.Context, userID string) (*models.PointsSummary, error) {
	balance, err := s.points.Balance(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load balance")
	}
	completions, err := s.points.ListCompletions(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completions")
	}
	achievements, err := s.points.ListAchievements(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list achievements")
	}
	return &models.PointsSummary{
		UserID:       userID,
		Balance:      balance,
		Completions:  completions,
		Achievements: achievements,
	}, nil
}

// CreateTask adds a bonus task to the catalog.
func (s *PointsService) CreateTask(ctx context.Context, req CreateBonusTaskRequest) (*models.BonusTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bonus task payload")
	}
	task := &models.BonusTask{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		Active:      true,
		CreatedBy:   req.CreatedBy,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bonus task")
	}
	return task, nil
}

// ListTasks returns the bonus-task catalog.
func (s *PointsService) ListTasks(ctx context.Context, activeOnly bool) ([]models.BonusTask, error) {
	tasks, err := s.tasks.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bonus tasks")
	}
	return tasks, nil
}

func (s *PointsService) fireAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	count, err := s.points.CountCompletions(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completions")
	}
	var earned []models.Achievement
	for _, threshold := range models.AchievementThresholds {
		// Equality, not threshold-or-above: a badge fires exactly once.
		if count != threshold {
			continue
		}
		achievement := &models.Achievement{
			UserID:    userID,
			Milestone: threshold,
			Title:     fmt.Sprintf("Completed %d bonus tasks", threshold),
		}
		if err := s.points.AppendAchievement(ctx, achievement); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append achievement")
		}
		earned = append(earned, *achievement)
		if s.notifier != nil {
			s.notifier.Notify(ctx, userID, models.EventAchievement, achievement)
		}
	}
	return earned, nil
}

func (s *PointsService) notifyBalance(ctx context.Context, userID string, balance int, reason string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, models.EventPointsChanged, map[string]interface{}{
		"balance": balance,
		"reason":  reason,
	})
}
