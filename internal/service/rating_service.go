package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/lock"
)

type ratingRepo interface {
	FindByStudentAndGroup(ctx context.Context, studentID, groupID string) (*models.Rating, error)
	Create(ctx context.Context, rating *models.Rating) error
	UpdateWithVersion(ctx context.Context, rating *models.Rating) error
	ListByGroup(ctx context.Context, groupID string) ([]models.Rating, error)
	UpdateRanks(ctx context.Context, assignments []models.RankAssignment) error
	AppendMonthlySnapshot(ctx context.Context, stat *models.RatingMonthlyStat) error
	ListMonthlyStats(ctx context.Context, ratingID string) ([]models.RatingMonthlyStat, error)
}

type homeworkFactsReader interface {
	FactsFor(ctx context.Context, studentID, groupID string) (*models.HomeworkFacts, error)
}

type attendanceFactsReader interface {
	FactsFor(ctx context.Context, studentID, groupID string) (*models.AttendanceFacts, error)
}

type participationCounter interface {
	CountFor(ctx context.Context, studentID, groupID string) (int, error)
}

type membershipChecker interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

type eventNotifier interface {
	Notify(ctx context.Context, userID string, eventType models.EventType, payload interface{})
}

// defaultRecomputeRetries bounds the optimistic-write loop before the
// contention is surfaced as a conflict.
const defaultRecomputeRetries = 3

// RatingService is the rating engine: it re-derives component scores
// from the authoritative fact records, persists them under optimistic
// concurrency, and resolves group rankings.
type RatingService struct {
	ratings       ratingRepo
	homeworks     homeworkFactsReader
	attendance    attendanceFactsReader
	participation participationCounter
	memberships   membershipChecker
	notifier      eventNotifier
	cache         *CacheService
	metrics       *MetricsService
	locks         *lock.KeyedMutex
	maxRetries    int
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewRatingService constructs RatingService.
func NewRatingService(ratings ratingRepo, homeworks homeworkFactsReader, attendance attendanceFactsReader, participation participationCounter, memberships membershipChecker, notifier eventNotifier, cache *CacheService, metrics *MetricsService, maxRetries int, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = defaultRecomputeRetries
	}
	return &RatingService{
		ratings:       ratings,
		homeworks:     homeworks,
		attendance:    attendance,
		participation: participation,
		memberships:   memberships,
		notifier:      notifier,
		cache:         cache,
		metrics:       metrics,
		locks:         lock.NewKeyedMutex(),
		maxRetries:    maxRetries,
		validator:     validate,
		logger:        logger,
	}
}

// roundHalfUp rounds to the nearest integer, halves away from zero on
// the positive scale this engine works in.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func leaderboardKey(groupID string) string {
	return fmt.Sprintf("leaderboard:group:%s", groupID)
}

// Recompute re-derives a student's rating inside a group from the raw
// homework, attendance and participation facts. It is idempotent:
// identical facts always yield an identical rating. The write is
// serialized per (student, group) and guarded by the version stamp;
// persistent contention surfaces as a conflict.
func (s *RatingService) Recompute(ctx context.Context, studentID, groupID string) (*models.Rating, error) {
	if studentID == "" || groupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student and group required")
	}

	key := "rating:" + studentID + ":" + groupID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	facts, err := s.gatherFacts(ctx, studentID, groupID)
	if err != nil {
		return nil, err
	}

	grades, attendance, homeworkCompletion, classParticipation := deriveComponents(facts)
	for _, component := range []float64{grades, attendance, homeworkCompletion, classParticipation} {
		if component < models.ComponentScaleMin || component > models.ComponentScaleMax {
			return nil, appErrors.Clone(appErrors.ErrValidation, "component score out of range")
		}
	}
	total := roundHalfUp(grades*models.WeightGrades +
		attendance*models.WeightAttendance +
		homeworkCompletion*models.WeightHomeworkCompletion +
		classParticipation*models.WeightClassParticipation)

	var rating *models.Rating
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rating, err = s.loadOrBootstrap(ctx, studentID, groupID)
		if err != nil {
			return nil, err
		}

		rating.Grades = grades
		rating.Attendance = attendance
		rating.HomeworkCompletion = homeworkCompletion
		rating.ClassParticipation = classParticipation
		rating.TotalScore = total
		rating.TotalHomeworks = facts.TotalHomeworks
		rating.CompletedHomeworks = facts.CompletedHomeworks
		rating.TotalClasses = facts.TotalClasses
		rating.AttendedClasses = facts.AttendedClasses
		rating.ParticipationCount = facts.ParticipationCount
		rating.AverageGrade = facts.AverageGrade

		err = s.ratings.UpdateWithVersion(ctx, rating)
		if err == nil {
			s.metrics.RecordRecompute()
			if s.cache != nil {
				s.cache.Invalidate(ctx, leaderboardKey(groupID)) //nolint:errcheck
			}
			if s.notifier != nil {
				s.notifier.Notify(ctx, studentID, models.EventRatingUpdated, rating)
			}
			return rating, nil
		}
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist rating")
		}
		s.logger.Debug("rating version conflict, retrying",
			zap.String("student_id", studentID),
			zap.String("group_id", groupID),
			zap.Int("attempt", attempt+1))
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "rating recompute contention exceeded retry bound")
}

// ResolveGroup recomputes the full ranking of a group: stable sort by
// total score descending with insertion-order tie break, dense 1..N
// ranks, persisted in one batch. Serialized per group. An empty group
// resolves to an empty ranking.
func (s *RatingService) ResolveGroup(ctx context.Context, groupID string) ([]models.Rating, error) {
	if groupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group required")
	}

	key := "rank:" + groupID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	ratings, err := s.ratings.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group ratings")
	}
	if len(ratings) == 0 {
		return []models.Rating{}, nil
	}

	// ListByGroup returns insertion order, so the stable sort breaks
	// exact-score ties in favour of the earlier-registered student.
	sort.SliceStable(ratings, func(i, j int) bool {
		return ratings[i].TotalScore > ratings[j].TotalScore
	})

	assignments := make([]models.RankAssignment, 0, len(ratings))
	changed := make([]models.Rating, 0, len(ratings))
	for i := range ratings {
		rank := i + 1
		if ratings[i].RankInGroup != rank {
			changed = append(changed, ratings[i])
		}
		assignments = append(assignments, models.RankAssignment{RatingID: ratings[i].ID, Rank: rank, Version: ratings[i].Version})
		ratings[i].RankInGroup = rank
	}

	if err := s.ratings.UpdateRanks(ctx, assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist ranks")
	}

	s.metrics.RecordResolve()
	if s.cache != nil {
		s.cache.Set(ctx, leaderboardKey(groupID), ratings, 0) //nolint:errcheck
	}
	if s.notifier != nil {
		for i := range changed {
			s.notifier.Notify(ctx, changed[i].StudentID, models.EventRankChanged, map[string]interface{}{
				"group_id":    groupID,
				"total_score": changed[i].TotalScore,
			})
		}
	}
	return ratings, nil
}

// Leaderboard returns the group ranking, served from cache when warm.
// The second return reports whether the cache satisfied the read.
func (s *RatingService) Leaderboard(ctx context.Context, groupID string) ([]models.Rating, bool, error) {
	var cached []models.Rating
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, leaderboardKey(groupID), &cached); err == nil && hit {
			return cached, true, nil
		}
	}
	ratings, err := s.ResolveGroup(ctx, groupID)
	return ratings, false, err
}

// Get returns a student's rating in a group with its monthly history.
func (s *RatingService) Get(ctx context.Context, studentID, groupID string) (*models.Rating, error) {
	rating, err := s.ratings.FindByStudentAndGroup(ctx, studentID, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	stats, err := s.ratings.ListMonthlyStats(ctx, rating.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly stats")
	}
	rating.MonthlyStats = stats
	return rating, nil
}

// SnapshotMonth closes a period for a group: every rating gets one
// write-once historical row. Re-running for the same period is a no-op.
func (s *RatingService) SnapshotMonth(ctx context.Context, groupID string, year, month int) error {
	if month < 1 || month > 12 {
		return appErrors.Clone(appErrors.ErrValidation, "month out of range")
	}
	ratings, err := s.ratings.ListByGroup(ctx, groupID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group ratings")
	}
	for i := range ratings {
		stat := &models.RatingMonthlyStat{
			RatingID:           ratings[i].ID,
			Year:               year,
			Month:              month,
			Grades:             ratings[i].Grades,
			Attendance:         ratings[i].Attendance,
			HomeworkCompletion: ratings[i].HomeworkCompletion,
			ClassParticipation: ratings[i].ClassParticipation,
			TotalScore:         ratings[i].TotalScore,
			RankInGroup:        ratings[i].RankInGroup,
			CreatedAt:          time.Now().UTC(),
		}
		if err := s.ratings.AppendMonthlySnapshot(ctx, stat); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append snapshot")
		}
	}
	return nil
}

func (s *RatingService) gatherFacts(ctx context.Context, studentID, groupID string) (*models.RatingFacts, error) {
	homework, err := s.homeworks.FactsFor(ctx, studentID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework facts")
	}
	attendance, err := s.attendance.FactsFor(ctx, studentID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance facts")
	}
	participation, err := s.participation.CountFor(ctx, studentID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participation facts")
	}
	return &models.RatingFacts{
		TotalHomeworks:     homework.TotalHomeworks,
		CompletedHomeworks: homework.CompletedHomeworks,
		AverageGrade:       homework.AverageGrade,
		TotalClasses:       attendance.TotalClasses,
		AttendedClasses:    attendance.AttendedClasses,
		ParticipationCount: participation,
	}, nil
}

// deriveComponents maps raw counters onto the [0,10] component scale.
// Ratios are computed from scratch and rounded half-up; they are never
// running averages.
func deriveComponents(facts *models.RatingFacts) (grades, attendance, homeworkCompletion, classParticipation float64) {
	grades = facts.AverageGrade
	if facts.TotalClasses > 0 {
		attendance = roundHalfUp(float64(facts.AttendedClasses) / float64(facts.TotalClasses) * models.ComponentScaleMax)
	}
	if facts.TotalHomeworks > 0 {
		homeworkCompletion = roundHalfUp(float64(facts.CompletedHomeworks) / float64(facts.TotalHomeworks) * models.ComponentScaleMax)
	}
	classParticipation = math.Min(models.ComponentScaleMax, float64(facts.ParticipationCount))
	return grades, attendance, homeworkCompletion, classParticipation
}

func (s *RatingService) loadOrBootstrap(ctx context.Context, studentID, groupID string) (*models.Rating, error) {
	rating, err := s.ratings.FindByStudentAndGroup(ctx, studentID, groupID)
	if err == nil {
		return rating, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}

	member, err := s.memberships.IsMember(ctx, groupID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no rating and no group membership")
	}

	fresh := &models.Rating{StudentID: studentID, GroupID: groupID}
	if err := s.ratings.Create(ctx, fresh); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bootstrap rating")
	}
	rating, err = s.ratings.FindByStudentAndGroup(ctx, studentID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload rating")
	}
	return rating, nil
}
