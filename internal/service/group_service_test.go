package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type mockGroupRepo struct {
	groups  map[string]*models.Group
	members []models.GroupMember
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: map[string]*models.Group{}}
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.Group) error {
	group.ID = "g1"
	m.groups[group.ID] = group
	return nil
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return group, nil
}

func (m *mockGroupRepo) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	out := make([]models.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockGroupRepo) AddMember(ctx context.Context, member *models.GroupMember) error {
	m.members = append(m.members, *member)
	return nil
}

func (m *mockGroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	for _, mem := range m.members {
		if mem.GroupID == groupID && mem.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGroupRepo) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	return m.members, nil
}

type ratingCreatorStub struct {
	created []models.Rating
}

func (r *ratingCreatorStub) Create(ctx context.Context, rating *models.Rating) error {
	r.created = append(r.created, *rating)
	return nil
}

func TestCreateGroupStartsActive(t *testing.T) {
	repo := newMockGroupRepo()
	svc := NewGroupService(repo, &ratingCreatorStub{}, nil, nil)

	group, err := svc.Create(context.Background(), CreateGroupRequest{Name: "7A", TeacherID: "t1"})
	require.NoError(t, err)
	assert.True(t, group.Active)
	assert.Equal(t, "t1", group.TeacherID)
}

func TestAddMemberBootstrapsRating(t *testing.T) {
	repo := newMockGroupRepo()
	ratings := &ratingCreatorStub{}
	svc := NewGroupService(repo, ratings, nil, nil)

	group, err := svc.Create(context.Background(), CreateGroupRequest{Name: "7A", TeacherID: "t1"})
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(context.Background(), group.ID, "s1"))

	require.Len(t, repo.members, 1)
	assert.Equal(t, "s1", repo.members[0].UserID)

	require.Len(t, ratings.created, 1)
	assert.Equal(t, "s1", ratings.created[0].StudentID)
	assert.Equal(t, group.ID, ratings.created[0].GroupID)
	assert.Zero(t, ratings.created[0].TotalScore)
}

func TestAddMemberUnknownGroup(t *testing.T) {
	svc := NewGroupService(newMockGroupRepo(), &ratingCreatorStub{}, nil, nil)

	err := svc.AddMember(context.Background(), "missing", "s1")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}
