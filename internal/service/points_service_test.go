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

type mockPointsRepo struct {
	balances     map[string]int
	completions  map[string][]models.BonusTaskCompletion
	achievements map[string][]models.Achievement
}

func newMockPointsRepo() *mockPointsRepo {
	return &mockPointsRepo{
		balances:     make(map[string]int),
		completions:  make(map[string][]models.BonusTaskCompletion),
		achievements: make(map[string][]models.Achievement),
	}
}

func (m *mockPointsRepo) Balance(ctx context.Context, userID string) (int, error) {
	balance, ok := m.balances[userID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return balance, nil
}

func (m *mockPointsRepo) Credit(ctx context.Context, userID string, amount int) (int, error) {
	if _, ok := m.balances[userID]; !ok {
		return 0, sql.ErrNoRows
	}
	m.balances[userID] += amount
	return m.balances[userID], nil
}

func (m *mockPointsRepo) Debit(ctx context.Context, userID string, amount int) (int, error) {
	balance, ok := m.balances[userID]
	if !ok || balance < amount {
		return 0, appErrors.ErrInsufficientPoints
	}
	m.balances[userID] -= amount
	return m.balances[userID], nil
}

func (m *mockPointsRepo) CreditForTask(ctx context.Context, completion *models.BonusTaskCompletion) (int, error) {
	for _, existing := range m.completions[completion.UserID] {
		if existing.TaskID == completion.TaskID {
			return 0, appErrors.ErrAlreadyCompleted
		}
	}
	if _, ok := m.balances[completion.UserID]; !ok {
		return 0, sql.ErrNoRows
	}
	m.completions[completion.UserID] = append(m.completions[completion.UserID], *completion)
	m.balances[completion.UserID] += completion.PointsEarned
	return m.balances[completion.UserID], nil
}

func (m *mockPointsRepo) CountCompletions(ctx context.Context, userID string) (int, error) {
	return len(m.completions[userID]), nil
}

func (m *mockPointsRepo) ListCompletions(ctx context.Context, userID string) ([]models.BonusTaskCompletion, error) {
	return m.completions[userID], nil
}

func (m *mockPointsRepo) AppendAchievement(ctx context.Context, achievement *models.Achievement) error {
	for _, existing := range m.achievements[achievement.UserID] {
		if existing.Milestone == achievement.Milestone {
			return nil
		}
	}
	m.achievements[achievement.UserID] = append(m.achievements[achievement.UserID], *achievement)
	return nil
}

func (m *mockPointsRepo) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	return m.achievements[userID], nil
}

type mockBonusTaskRepo struct {
	tasks map[string]models.BonusTask
}

func (m *mockBonusTaskRepo) Create(ctx context.Context, task *models.BonusTask) error {
	if m.tasks == nil {
		m.tasks = make(map[string]models.BonusTask)
	}
	task.ID = "t-" + task.Title
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockBonusTaskRepo) FindByID(ctx context.Context, id string) (*models.BonusTask, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := task
	return &copied, nil
}

func (m *mockBonusTaskRepo) List(ctx context.Context, activeOnly bool) ([]models.BonusTask, error) {
	var out []models.BonusTask
	for _, task := range m.tasks {
		if activeOnly && !task.Active {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (m *mockBonusTaskRepo) SetActive(ctx context.Context, id string, active bool) error {
	task, ok := m.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	task.Active = active
	m.tasks[id] = task
	return nil
}

func seedTask(repo *mockBonusTaskRepo, id string, points int, active bool) {
	if repo.tasks == nil {
		repo.tasks = make(map[string]models.BonusTask)
	}
	repo.tasks[id] = models.BonusTask{ID: id, Title: id, Points: points, Active: active}
}

func TestCompleteBonusTaskCreditsOnce(t *testing.T) {
	points := newMockPointsRepo()
	points.balances["u1"] = 50
	tasks := &mockBonusTaskRepo{}
	seedTask(tasks, "t1", 25, true)
	svc := NewPointsService(points, tasks, &mockNotifier{}, nil, nil)

	result, err := svc.CompleteBonusTask(context.Background(), CompleteBonusTaskRequest{UserID: "u1", TaskID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 25, result.PointsEarned)
	assert.Equal(t, 75, result.TotalPoints)

	_, err = svc.CompleteBonusTask(context.Background(), CompleteBonusTaskRequest{UserID: "u1", TaskID: "t1"})
	requireErrorCode(t, err, appErrors.ErrAlreadyCompleted.Code)
	assert.Equal(t, 75, points.balances["u1"])
}

func TestCompleteBonusTaskInactive(t *testing.T) {
	points := newMockPointsRepo()
	points.balances["u1"] = 0
	tasks := &mockBonusTaskRepo{}
	seedTask(tasks, "t1", 25, false)
	svc := NewPointsService(points, tasks, &mockNotifier{}, nil, nil)

	_, err := svc.CompleteBonusTask(context.Background(), CompleteBonusTaskRequest{UserID: "u1", TaskID: "t1"})
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestAchievementFiresAtExactMilestones(t *testing.T) {
	points := newMockPointsRepo()
	points.balances["u1"] = 0
	tasks := &mockBonusTaskRepo{}
	for i := 0; i < 6; i++ {
		seedTask(tasks, string(rune('a'+i)), 10, true)
	}
	notifier := &mockNotifier{}
	svc := NewPointsService(points, tasks, notifier, nil, nil)

	var milestones []int
	for _, taskID := range []string{"a", "b", "c", "d", "e", "f"} {
		result, err := svc.CompleteBonusTask(context.Background(), CompleteBonusTaskRequest{UserID: "u1", TaskID: taskID})
		require.NoError(t, err)
		for _, a := range result.NewAchievements {
			milestones = append(milestones, a.Milestone)
		}
	}
	// Badges at counts 1 and 5 only; nothing re-fires between them.
	assert.Equal(t, []int{1, 5}, milestones)
	assert.Len(t, points.achievements["u1"], 2)
}

func TestDebitNeverGoesNegative(t *testing.T) {
	points := newMockPointsRepo()
	points.balances["u1"] = 30
	svc := NewPointsService(points, &mockBonusTaskRepo{}, &mockNotifier{}, nil, nil)

	_, err := svc.Debit(context.Background(), "u1", 50, "test")
	requireErrorCode(t, err, appErrors.ErrInsufficientPoints.Code)
	assert.Equal(t, 30, points.balances["u1"])

	balance, err := svc.Debit(context.Background(), "u1", 30, "test")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	points := newMockPointsRepo()
	points.balances["u1"] = 0
	svc := NewPointsService(points, &mockBonusTaskRepo{}, &mockNotifier{}, nil, nil)

	_, err := svc.Credit(context.Background(), "u1", 0, models.PointsSourceManual)
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestSummaryBundlesHistory(t *testing.T) {
	points := newMockPointsRepo()
	points.balances["u1"] = 40
	points.completions["u1"] = []models.BonusTaskCompletion{{TaskID: "t1", PointsEarned: 40}}
	points.achievements["u1"] = []models.Achievement{{Milestone: 1}}
	svc := NewPointsService(points, &mockBonusTaskRepo{}, &mockNotifier{}, nil, nil)

	summary, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 40, summary.Balance)
	assert.Len(t, summary.Completions, 1)
	assert.Len(t, summary.Achievements, 1)
}
