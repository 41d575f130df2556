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

type mockAttendanceRepo struct {
	records []models.AttendanceRecord
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func TestRecordSessionRecomputesEveryStudent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	recomputer := &stubRecomputer{}
	queue := &queueStub{}
	svc := NewAttendanceService(repo, recomputer, queue, nil, nil)

	err := svc.RecordSession(context.Background(), RecordAttendanceRequest{
		GroupID:     "g1",
		SessionDate: time.Now().UTC(),
		Entries: []AttendanceEntry{
			{StudentID: "s1", Status: models.AttendanceStatusPresent},
			{StudentID: "s2", Status: models.AttendanceStatusAbsent},
		},
		RecordedBy: "t1",
	})
	require.NoError(t, err)
	assert.Len(t, repo.records, 2)
	assert.Equal(t, []string{"s1:g1", "s2:g1"}, recomputer.calls)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "g1", queue.jobs[0].Payload)
}

func TestRecordSessionRejectsUnknownStatus(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceRepo{}, &stubRecomputer{}, &queueStub{}, nil, nil)

	err := svc.RecordSession(context.Background(), RecordAttendanceRequest{
		GroupID:     "g1",
		SessionDate: time.Now().UTC(),
		Entries:     []AttendanceEntry{{StudentID: "s1", Status: "NAPPING"}},
	})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}
