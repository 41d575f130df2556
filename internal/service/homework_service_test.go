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
	"github.com/noah-isme/sma-engage-api/pkg/jobs"
)

type mockHomeworkRepo struct {
	homeworks   map[string]models.Homework
	submissions map[string]models.HomeworkSubmission
}

func newMockHomeworkRepo() *mockHomeworkRepo {
	return &mockHomeworkRepo{
		homeworks:   make(map[string]models.Homework),
		submissions: make(map[string]models.HomeworkSubmission),
	}
}

func (m *mockHomeworkRepo) Create(ctx context.Context, homework *models.Homework) error {
	homework.ID = "hw-" + homework.Title
	m.homeworks[homework.ID] = *homework
	return nil
}

func (m *mockHomeworkRepo) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	hw, ok := m.homeworks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := hw
	return &copied, nil
}

func (m *mockHomeworkRepo) ListByGroup(ctx context.Context, groupID string) ([]models.Homework, error) {
	var out []models.Homework
	for _, hw := range m.homeworks {
		if hw.GroupID == groupID {
			out = append(out, hw)
		}
	}
	return out, nil
}

func (m *mockHomeworkRepo) UpsertSubmission(ctx context.Context, submission *models.HomeworkSubmission) error {
	submission.ID = "sub-" + submission.HomeworkID + "-" + submission.StudentID
	m.submissions[submission.ID] = *submission
	return nil
}

func (m *mockHomeworkRepo) FindSubmission(ctx context.Context, id string) (*models.HomeworkSubmission, error) {
	sub, ok := m.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := sub
	return &copied, nil
}

func (m *mockHomeworkRepo) GradeSubmission(ctx context.Context, id string, grade float64, feedback *string, gradedBy string) error {
	sub, ok := m.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.Grade = &grade
	sub.Status = models.SubmissionStatusGraded
	m.submissions[id] = sub
	return nil
}

type stubRecomputer struct {
	calls []string
}

func (s *stubRecomputer) Recompute(ctx context.Context, studentID, groupID string) (*models.Rating, error) {
	s.calls = append(s.calls, studentID+":"+groupID)
	return &models.Rating{StudentID: studentID, GroupID: groupID}, nil
}

type queueStub struct {
	jobs []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func seedHomework(repo *mockHomeworkRepo, id, groupID string, maxGrade float64, deadline *time.Time) {
	repo.homeworks[id] = models.Homework{ID: id, GroupID: groupID, MaxGrade: maxGrade, Deadline: deadline}
}

func TestSubmitFlagsLateAfterDeadline(t *testing.T) {
	repo := newMockHomeworkRepo()
	past := time.Now().UTC().Add(-time.Hour)
	seedHomework(repo, "hw1", "g1", 10, &past)
	svc := NewHomeworkService(repo, &mockMembership{member: true}, &stubRecomputer{}, &queueStub{}, nil, nil)

	submission, err := svc.Submit(context.Background(), SubmitHomeworkRequest{HomeworkID: "hw1", StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusLate, submission.Status)
}

func TestSubmitRejectsNonMember(t *testing.T) {
	repo := newMockHomeworkRepo()
	seedHomework(repo, "hw1", "g1", 10, nil)
	svc := NewHomeworkService(repo, &mockMembership{member: false}, &stubRecomputer{}, &queueStub{}, nil, nil)

	_, err := svc.Submit(context.Background(), SubmitHomeworkRequest{HomeworkID: "hw1", StudentID: "outsider"})
	requireErrorCode(t, err, appErrors.ErrForbidden.Code)
}

func TestGradeRecomputesAndQueuesResolve(t *testing.T) {
	repo := newMockHomeworkRepo()
	seedHomework(repo, "hw1", "g1", 10, nil)
	repo.submissions["sub1"] = models.HomeworkSubmission{ID: "sub1", HomeworkID: "hw1", StudentID: "s1", Status: models.SubmissionStatusSubmitted}
	recomputer := &stubRecomputer{}
	queue := &queueStub{}
	svc := NewHomeworkService(repo, &mockMembership{member: true}, recomputer, queue, nil, nil)

	_, err := svc.Grade(context.Background(), GradeSubmissionRequest{SubmissionID: "sub1", Grade: 8, GradedBy: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1:g1"}, recomputer.calls)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeResolveGroup, queue.jobs[0].Type)
	assert.Equal(t, "g1", queue.jobs[0].Payload)
	assert.Equal(t, models.SubmissionStatusGraded, repo.submissions["sub1"].Status)
}

func TestGradeOutOfRange(t *testing.T) {
	repo := newMockHomeworkRepo()
	seedHomework(repo, "hw1", "g1", 10, nil)
	repo.submissions["sub1"] = models.HomeworkSubmission{ID: "sub1", HomeworkID: "hw1", StudentID: "s1"}
	svc := NewHomeworkService(repo, &mockMembership{member: true}, &stubRecomputer{}, &queueStub{}, nil, nil)

	_, err := svc.Grade(context.Background(), GradeSubmissionRequest{SubmissionID: "sub1", Grade: 12, GradedBy: "t1"})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}
