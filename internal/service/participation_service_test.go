package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type mockParticipationRepo struct {
	records []models.ParticipationRecord
}

func (m *mockParticipationRepo) Create(ctx context.Context, record *models.ParticipationRecord) error {
	record.ID = "p1"
	m.records = append(m.records, *record)
	return nil
}

func (m *mockParticipationRepo) List(ctx context.Context, filter models.ParticipationFilter) ([]models.ParticipationRecord, error) {
	return m.records, nil
}

func TestRecordParticipationRecomputesAndQueues(t *testing.T) {
	repo := &mockParticipationRepo{}
	recomputer := &stubRecomputer{}
	queue := &queueStub{}
	svc := NewParticipationService(repo, &mockMembership{member: true}, recomputer, queue, nil, nil)

	rating, err := svc.Record(context.Background(), RecordParticipationRequest{
		GroupID: "g1", StudentID: "s1", Date: time.Now().UTC(), RecordedBy: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", rating.StudentID)
	assert.Len(t, repo.records, 1)
	assert.Equal(t, []string{"s1:g1"}, recomputer.calls)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeResolveGroup, queue.jobs[0].Type)
}

func TestRecordParticipationRejectsNonMember(t *testing.T) {
	svc := NewParticipationService(&mockParticipationRepo{}, &mockMembership{member: false}, &stubRecomputer{}, &queueStub{}, nil, nil)

	_, err := svc.Record(context.Background(), RecordParticipationRequest{
		GroupID: "g1", StudentID: "outsider", Date: time.Now().UTC(),
	})
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}
