package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/lock"
)

type rewardRepo interface {
	Create(ctx context.Context, reward *models.Reward) error
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
	FindByID(ctx context.Context, id string) (*models.Reward, error)
	FindByOrder(ctx context.Context, orderNum int) (*models.Reward, error)
	FindClaim(ctx context.Context, rewardID, userID string) (*models.RewardClaim, error)
	ListClaims(ctx context.Context, rewardID string) ([]models.RewardClaim, error)
	ClaimWithDebit(ctx context.Context, claim *models.RewardClaim, pointsRequired int) (int, error)
	UpdateClaimStatus(ctx context.Context, rewardID, userID string, status models.ClaimStatus) error
}

type balanceReader interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// CreateRewardRequest is the admin payload for a catalog entry.
type CreateRewardRequest struct {
	Name           string  `json:"name" validate:"required"`
	Description    *string `json:"description"`
	PointsRequired int     `json:"points_required" validate:"required,min=1"`
	OrderNum       int     `json:"order" validate:"required,min=1"`
}

// RewardService is the reward unlock gate: it enforces the claim
// preconditions in order, the sequential unlock chain, and the
// claim-plus-debit transaction boundary.
type RewardService struct {
	rewards  rewardRepo
	balances balanceReader
	notifier eventNotifier
	metrics  *MetricsService
	locks    *lock.KeyedMutex

	validator *validator.Validate
	logger    *zap.Logger
}

// NewRewardService constructs RewardService.
func NewRewardService(rewards rewardRepo, balances balanceReader, notifier eventNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RewardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardService{
		rewards:   rewards,
		balances:  balances,
		notifier:  notifier,
		metrics:   metrics,
		locks:     lock.NewKeyedMutex(),
		validator: validate,
		logger:    logger,
	}
}

// Create adds a reward to the catalog.
func (s *RewardService) Create(ctx context.Context, req CreateRewardRequest) (*models.Reward, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reward payload")
	}
	reward := &models.Reward{
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		OrderNum:       req.OrderNum,
		Active:         true,
	}
	if err := s.rewards.Create(ctx, reward); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reward")
	}
	return reward, nil
}

// List returns the catalog in unlock-chain order.
func (s *RewardService) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	rewards, err := s.rewards.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rewards")
	}
	return rewards, nil
}

// Claim redeems a reward for a student. Preconditions are checked in a
// fixed order, first failure wins: the reward must exist and be active,
// the balance must cover it, the student must not hold a claim already,
// and the previous reward in the chain must be claimed. The claim insert
// and the points debit commit in one transaction.
func (s *RewardService) Claim(ctx context.Context, userID, rewardID string) (*models.RewardClaim, error) {
	if userID == "" || rewardID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user and reward required")
	}

	key := "claim:" + userID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	reward, err := s.rewards.FindByID(ctx, rewardID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reward not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reward")
	}
	if !reward.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reward not active")
	}

	balance, err := s.balances.Balance(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load balance")
	}
	if balance < reward.PointsRequired {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPoints, "")
	}

	if _, err := s.rewards.FindClaim(ctx, rewardID, userID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyClaimed, "")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check claim")
	}

	if err := s.checkUnlockChain(ctx, reward, userID); err != nil {
		return nil, err
	}

	claim := &models.RewardClaim{RewardID: rewardID, UserID: userID, Status: models.ClaimStatusPending}
	if _, err := s.rewards.ClaimWithDebit(ctx, claim, reward.PointsRequired); err != nil {
		if appErr, ok := err.(*appErrors.Error); ok {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim reward")
	}

	s.metrics.RecordClaim()
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, models.EventRewardClaimed, map[string]interface{}{
			"reward_id": rewardID,
			"name":      reward.Name,
			"points":    reward.PointsRequired,
		})
	}
	return claim, nil
}

// ListClaims returns every claim for a reward.
func (s *RewardService) ListClaims(ctx context.Context, rewardID string) ([]models.RewardClaim, error) {
	claims, err := s.rewards.ListClaims(ctx, rewardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list claims")
	}
	return claims, nil
}

// UpdateClaimStatus moves a claim forward through fulfilment. The
// status never returns to pending.
func (s *RewardService) UpdateClaimStatus(ctx context.Context, rewardID, userID string, next models.ClaimStatus) error {
	claim, err := s.rewards.FindClaim(ctx, rewardID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "claim not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load claim")
	}
	if !claim.Status.CanTransitionTo(next) {
		return appErrors.Clone(appErrors.ErrConflict, "claim status only moves forward")
	}
	if err := s.rewards.UpdateClaimStatus(ctx, rewardID, userID, next); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "claim not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update claim status")
	}
	return nil
}

// checkUnlockChain enforces the sequential unlock: reward order k is
// claimable only when the student holds a claim for order k-1, unless
// k is the minimum order in the catalog.
func (s *RewardService) checkUnlockChain(ctx context.Context, reward *models.Reward, userID string) error {
	previous, err := s.rewards.FindByOrder(ctx, reward.OrderNum-1)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous reward")
	}
	if _, err := s.rewards.FindClaim(ctx, previous.ID, userID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrPreviousRewardRequired, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check previous claim")
	}
	return nil
}
