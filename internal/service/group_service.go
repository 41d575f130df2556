package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type groupRepo interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	AddMember(ctx context.Context, member *models.GroupMember) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
}

type ratingCreator interface {
	Create(ctx context.Context, rating *models.Rating) error
}

// CreateGroupRequest is the payload for a new group.
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	TeacherID   string  `json:"teacher_id" validate:"required"`
}

// GroupService manages groups and membership. Enrolling a student
// bootstraps their zeroed rating row, so the member appears in the
// ranking immediately.
type GroupService struct {
	groups  groupRepo
	ratings ratingCreator

	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(groups groupRepo, ratings ratingCreator, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, ratings: ratings, validator: validate, logger: logger}
}

// Create registers a group.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group := &models.Group{
		Name:        req.Name,
		Description: req.Description,
		TeacherID:   req.TeacherID,
		Active:      true,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// Get returns a group by identifier.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// List returns groups matching the filter.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	groups, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// AddMember enrolls a student and bootstraps their rating row.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	member := &models.GroupMember{GroupID: groupID, UserID: userID}
	if err := s.groups.AddMember(ctx, member); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}
	rating := &models.Rating{StudentID: userID, GroupID: groupID}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bootstrap rating")
	}
	return nil
}

// Members returns the roster in join order.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}
