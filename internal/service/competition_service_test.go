package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type mockCompetitionRepo struct {
	competitions map[string]models.Competition
	participants map[string]models.CompetitionParticipant
	winners      []models.CompetitionWinner
}

func newMockCompetitionRepo() *mockCompetitionRepo {
	return &mockCompetitionRepo{
		competitions: make(map[string]models.Competition),
		participants: make(map[string]models.CompetitionParticipant),
	}
}

func (m *mockCompetitionRepo) Create(ctx context.Context, c *models.Competition) error {
	c.ID = "cmp-" + c.Title
	m.competitions[c.ID] = *c
	return nil
}

func (m *mockCompetitionRepo) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	c, ok := m.competitions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := c
	return &copied, nil
}

func (m *mockCompetitionRepo) List(ctx context.Context, status *models.CompetitionStatus) ([]models.Competition, error) {
	var out []models.Competition
	for _, c := range m.competitions {
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCompetitionRepo) UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus) error {
	c, ok := m.competitions[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Status = status
	m.competitions[id] = c
	return nil
}

func (m *mockCompetitionRepo) RegisterParticipant(ctx context.Context, p *models.CompetitionParticipant) error {
	key := p.CompetitionID + ":" + p.UserID
	if _, ok := m.participants[key]; ok {
		return appErrors.ErrAlreadyCompleted
	}
	m.participants[key] = *p
	return nil
}

func (m *mockCompetitionRepo) RecordSubmission(ctx context.Context, competitionID, userID string, score float64) error {
	key := competitionID + ":" + userID
	p, ok := m.participants[key]
	if !ok {
		return sql.ErrNoRows
	}
	p.Submissions++
	if score > p.Score {
		p.Score = score
	}
	m.participants[key] = p
	return nil
}

func (m *mockCompetitionRepo) ListParticipants(ctx context.Context, competitionID string) ([]models.CompetitionParticipant, error) {
	var out []models.CompetitionParticipant
	for _, p := range m.participants {
		if p.CompetitionID == competitionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCompetitionRepo) InsertWinner(ctx context.Context, w *models.CompetitionWinner) error {
	m.winners = append(m.winners, *w)
	return nil
}

func (m *mockCompetitionRepo) ListWinners(ctx context.Context, competitionID string) ([]models.CompetitionWinner, error) {
	var out []models.CompetitionWinner
	for _, w := range m.winners {
		if w.CompetitionID == competitionID {
			out = append(out, w)
		}
	}
	return out, nil
}

type stubPrizeCrediter struct {
	credits map[string]int
}

func (s *stubPrizeCrediter) Credit(ctx context.Context, userID string, amount int, source models.PointsSource) (int, error) {
	if s.credits == nil {
		s.credits = make(map[string]int)
	}
	s.credits[userID] += amount
	return s.credits[userID], nil
}

func seedCompetition(repo *mockCompetitionRepo, id string, status models.CompetitionStatus) {
	repo.competitions[id] = models.Competition{
		ID: id, Title: id, Status: status,
		StartsAt: time.Now().Add(-time.Hour), EndsAt: time.Now().Add(time.Hour),
	}
}

func TestRegisterOnce(t *testing.T) {
	repo := newMockCompetitionRepo()
	seedCompetition(repo, "c1", models.CompetitionStatusActive)
	svc := NewCompetitionService(repo, &stubPrizeCrediter{}, &mockNotifier{}, nil, nil)

	require.NoError(t, svc.Register(context.Background(), "c1", "u1"))
	err := svc.Register(context.Background(), "c1", "u1")
	requireErrorCode(t, err, appErrors.ErrAlreadyCompleted.Code)
}

func TestRegisterFinishedCompetition(t *testing.T) {
	repo := newMockCompetitionRepo()
	seedCompetition(repo, "c1", models.CompetitionStatusFinished)
	svc := NewCompetitionService(repo, &stubPrizeCrediter{}, &mockNotifier{}, nil, nil)

	err := svc.Register(context.Background(), "c1", "u1")
	requireErrorCode(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestRecordSubmissionRequiresActive(t *testing.T) {
	repo := newMockCompetitionRepo()
	seedCompetition(repo, "c1", models.CompetitionStatusUpcoming)
	svc := NewCompetitionService(repo, &stubPrizeCrediter{}, &mockNotifier{}, nil, nil)

	err := svc.RecordSubmission(context.Background(), "c1", "u1", 80)
	requireErrorCode(t, err, appErrors.ErrPreconditionFailed.Code)
}

func TestAssignWinnersCreditsPrizesAndCloses(t *testing.T) {
	repo := newMockCompetitionRepo()
	seedCompetition(repo, "c1", models.CompetitionStatusActive)
	prizes := &stubPrizeCrediter{}
	notifier := &mockNotifier{}
	svc := NewCompetitionService(repo, prizes, notifier, nil, nil)

	winners, err := svc.AssignWinners(context.Background(), "c1", []models.WinnerAssignment{
		{UserID: "u1", Position: 1, PrizePoints: 100},
		{UserID: "u2", Position: 2, PrizePoints: 50},
	})
	require.NoError(t, err)
	assert.Len(t, winners, 2)
	assert.Equal(t, 100, prizes.credits["u1"])
	assert.Equal(t, 50, prizes.credits["u2"])
	assert.Equal(t, models.CompetitionStatusFinished, repo.competitions["c1"].Status)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, models.EventCompetitionPrize, notifier.events[0].Type)
}
