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

type mockRatingRepo struct {
	ratings        map[string]models.Rating
	forceConflicts int
	snapshots      []models.RatingMonthlyStat
}

func ratingKey(studentID, groupID string) string { return studentID + ":" + groupID }

func (m *mockRatingRepo) FindByStudentAndGroup(ctx context.Context, studentID, groupID string) (*models.Rating, error) {
	r, ok := m.ratings[ratingKey(studentID, groupID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := r
	return &copied, nil
}

func (m *mockRatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	if m.ratings == nil {
		m.ratings = make(map[string]models.Rating)
	}
	rating.ID = "r-" + rating.StudentID
	rating.Version = 1
	m.ratings[ratingKey(rating.StudentID, rating.GroupID)] = *rating
	return nil
}

func (m *mockRatingRepo) UpdateWithVersion(ctx context.Context, rating *models.Rating) error {
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return sql.ErrNoRows
	}
	stored, ok := m.ratings[ratingKey(rating.StudentID, rating.GroupID)]
	if !ok || stored.Version != rating.Version {
		return sql.ErrNoRows
	}
	rating.Version++
	m.ratings[ratingKey(rating.StudentID, rating.GroupID)] = *rating
	return nil
}

func (m *mockRatingRepo) ListByGroup(ctx context.Context, groupID string) ([]models.Rating, error) {
	var out []models.Rating
	// Deterministic insertion order for the tests that seed via seedRating.
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		if r, ok := m.ratings[ratingKey(id, groupID)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRatingRepo) UpdateRanks(ctx context.Context, assignments []models.RankAssignment) error {
	for _, a := range assignments {
		for key, r := range m.ratings {
			if r.ID == a.RatingID {
				r.RankInGroup = a.Rank
				m.ratings[key] = r
			}
		}
	}
	return nil
}

func (m *mockRatingRepo) AppendMonthlySnapshot(ctx context.Context, stat *models.RatingMonthlyStat) error {
	for _, existing := range m.snapshots {
		if existing.RatingID == stat.RatingID && existing.Year == stat.Year && existing.Month == stat.Month {
			return nil
		}
	}
	m.snapshots = append(m.snapshots, *stat)
	return nil
}

func (m *mockRatingRepo) ListMonthlyStats(ctx context.Context, ratingID string) ([]models.RatingMonthlyStat, error) {
	var out []models.RatingMonthlyStat
	for _, s := range m.snapshots {
		if s.RatingID == ratingID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRatingRepo) seedRating(studentID, groupID string, total float64) {
	if m.ratings == nil {
		m.ratings = make(map[string]models.Rating)
	}
	m.ratings[ratingKey(studentID, groupID)] = models.Rating{
		ID: "r-" + studentID, StudentID: studentID, GroupID: groupID, TotalScore: total, Version: 1,
	}
}

type mockHomeworkFacts struct{ facts models.HomeworkFacts }

func (m *mockHomeworkFacts) FactsFor(ctx context.Context, studentID, groupID string) (*models.HomeworkFacts, error) {
	copied := m.facts
	return &copied, nil
}

type mockAttendanceFacts struct{ facts models.AttendanceFacts }

func (m *mockAttendanceFacts) FactsFor(ctx context.Context, studentID, groupID string) (*models.AttendanceFacts, error) {
	copied := m.facts
	return &copied, nil
}

type mockParticipation struct{ count int }

func (m *mockParticipation) CountFor(ctx context.Context, studentID, groupID string) (int, error) {
	return m.count, nil
}

type mockMembership struct{ member bool }

func (m *mockMembership) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return m.member, nil
}

type recordedEvent struct {
	UserID string
	Type   models.EventType
}

type mockNotifier struct{ events []recordedEvent }

func (m *mockNotifier) Notify(ctx context.Context, userID string, eventType models.EventType, payload interface{}) {
	m.events = append(m.events, recordedEvent{UserID: userID, Type: eventType})
}

func newRatingService(repo *mockRatingRepo, hw *mockHomeworkFacts, att *mockAttendanceFacts, part *mockParticipation, member *mockMembership, notifier *mockNotifier) *RatingService {
	return NewRatingService(repo, hw, att, part, member, notifier, nil, nil, 3, nil, nil)
}

func TestRecomputeWeightedTotal(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 0)
	// averageGrade 8, attendance 6/10, homework 5/5, participation 4
	// -> round(3.2 + 1.5 + 2.5 + 0.4) = 8
	hw := &mockHomeworkFacts{facts: models.HomeworkFacts{TotalHomeworks: 5, CompletedHomeworks: 5, AverageGrade: 8}}
	att := &mockAttendanceFacts{facts: models.AttendanceFacts{TotalClasses: 10, AttendedClasses: 6}}
	svc := newRatingService(repo, hw, att, &mockParticipation{count: 4}, &mockMembership{member: true}, &mockNotifier{})

	rating, err := svc.Recompute(context.Background(), "s1", "g1")
	require.NoError(t, err)
	assert.Equal(t, 8.0, rating.Grades)
	assert.Equal(t, 6.0, rating.Attendance)
	assert.Equal(t, 10.0, rating.HomeworkCompletion)
	assert.Equal(t, 4.0, rating.ClassParticipation)
	assert.Equal(t, 8.0, rating.TotalScore)
}

func TestRecomputeIdempotent(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 0)
	hw := &mockHomeworkFacts{facts: models.HomeworkFacts{TotalHomeworks: 4, CompletedHomeworks: 3, AverageGrade: 7}}
	att := &mockAttendanceFacts{facts: models.AttendanceFacts{TotalClasses: 8, AttendedClasses: 8}}
	svc := newRatingService(repo, hw, att, &mockParticipation{count: 2}, &mockMembership{member: true}, &mockNotifier{})

	first, err := svc.Recompute(context.Background(), "s1", "g1")
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), "s1", "g1")
	require.NoError(t, err)
	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.Grades, second.Grades)
	assert.Equal(t, first.HomeworkCompletion, second.HomeworkCompletion)
}

func TestRecomputeZeroHomeworksYieldsZeroComponent(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 0)
	hw := &mockHomeworkFacts{facts: models.HomeworkFacts{}}
	att := &mockAttendanceFacts{facts: models.AttendanceFacts{}}
	svc := newRatingService(repo, hw, att, &mockParticipation{}, &mockMembership{member: true}, &mockNotifier{})

	rating, err := svc.Recompute(context.Background(), "s1", "g1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rating.HomeworkCompletion)
	assert.Equal(t, 0.0, rating.Attendance)
	assert.Equal(t, 0.0, rating.TotalScore)
}

func TestRecomputeNotFoundWithoutMembership(t *testing.T) {
	repo := &mockRatingRepo{}
	hw := &mockHomeworkFacts{}
	att := &mockAttendanceFacts{}
	svc := newRatingService(repo, hw, att, &mockParticipation{}, &mockMembership{member: false}, &mockNotifier{})

	_, err := svc.Recompute(context.Background(), "ghost", "g1")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestRecomputeBootstrapsRowForMember(t *testing.T) {
	repo := &mockRatingRepo{}
	hw := &mockHomeworkFacts{facts: models.HomeworkFacts{TotalHomeworks: 1, CompletedHomeworks: 1, AverageGrade: 10}}
	att := &mockAttendanceFacts{facts: models.AttendanceFacts{TotalClasses: 1, AttendedClasses: 1}}
	svc := newRatingService(repo, hw, att, &mockParticipation{count: 1}, &mockMembership{member: true}, &mockNotifier{})

	rating, err := svc.Recompute(context.Background(), "s1", "g1")
	require.NoError(t, err)
	assert.NotEmpty(t, rating.ID)
	assert.Equal(t, 10.0, rating.HomeworkCompletion)
}

func TestRecomputeConflictAfterRetryBound(t *testing.T) {
	repo := &mockRatingRepo{forceConflicts: 10}
	repo.seedRating("s1", "g1", 0)
	hw := &mockHomeworkFacts{}
	att := &mockAttendanceFacts{}
	svc := newRatingService(repo, hw, att, &mockParticipation{}, &mockMembership{member: true}, &mockNotifier{})

	_, err := svc.Recompute(context.Background(), "s1", "g1")
	requireErrorCode(t, err, appErrors.ErrConflict.Code)
}

func TestRecomputeOutOfRangeGrade(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 0)
	hw := &mockHomeworkFacts{facts: models.HomeworkFacts{TotalHomeworks: 1, CompletedHomeworks: 1, AverageGrade: 14}}
	att := &mockAttendanceFacts{}
	svc := newRatingService(repo, hw, att, &mockParticipation{}, &mockMembership{member: true}, &mockNotifier{})

	_, err := svc.Recompute(context.Background(), "s1", "g1")
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestResolveGroupDenseRanksWithTies(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 8)
	repo.seedRating("s2", "g1", 8)
	repo.seedRating("s3", "g1", 5)
	notifier := &mockNotifier{}
	svc := newRatingService(repo, &mockHomeworkFacts{}, &mockAttendanceFacts{}, &mockParticipation{}, &mockMembership{member: true}, notifier)

	ranked, err := svc.ResolveGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	// Tied scores keep insertion order and still take distinct ranks.
	assert.Equal(t, "s1", ranked[0].StudentID)
	assert.Equal(t, 1, ranked[0].RankInGroup)
	assert.Equal(t, "s2", ranked[1].StudentID)
	assert.Equal(t, 2, ranked[1].RankInGroup)
	assert.Equal(t, "s3", ranked[2].StudentID)
	assert.Equal(t, 3, ranked[2].RankInGroup)
}

func TestResolveGroupIdempotent(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 9)
	repo.seedRating("s2", "g1", 7)
	svc := newRatingService(repo, &mockHomeworkFacts{}, &mockAttendanceFacts{}, &mockParticipation{}, &mockMembership{member: true}, &mockNotifier{})

	first, err := svc.ResolveGroup(context.Background(), "g1")
	require.NoError(t, err)
	second, err := svc.ResolveGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].StudentID, second[i].StudentID)
		assert.Equal(t, first[i].RankInGroup, second[i].RankInGroup)
	}
}

func TestResolveGroupEmpty(t *testing.T) {
	repo := &mockRatingRepo{}
	svc := newRatingService(repo, &mockHomeworkFacts{}, &mockAttendanceFacts{}, &mockParticipation{}, &mockMembership{member: true}, &mockNotifier{})

	ranked, err := svc.ResolveGroup(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestResolveGroupNotifiesRankChanges(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 3)
	repo.seedRating("s2", "g1", 9)
	notifier := &mockNotifier{}
	svc := newRatingService(repo, &mockHomeworkFacts{}, &mockAttendanceFacts{}, &mockParticipation{}, &mockMembership{member: true}, notifier)

	_, err := svc.ResolveGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, models.EventRankChanged, notifier.events[0].Type)
}

func TestSnapshotMonthWriteOnce(t *testing.T) {
	repo := &mockRatingRepo{}
	repo.seedRating("s1", "g1", 8)
	svc := newRatingService(repo, &mockHomeworkFacts{}, &mockAttendanceFacts{}, &mockParticipation{}, &mockMembership{member: true}, &mockNotifier{})

	require.NoError(t, svc.SnapshotMonth(context.Background(), "g1", 2026, 8))
	require.NoError(t, svc.SnapshotMonth(context.Background(), "g1", 2026, 8))
	assert.Len(t, repo.snapshots, 1)
}

func requireErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok, "expected *appErrors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
}
