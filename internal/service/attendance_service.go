package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/jobs"
)

type attendanceRepo interface {
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// AttendanceEntry is one student's status within a session sheet.
type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Notes     *string                 `json:"notes"`
}

// RecordAttendanceRequest writes one class session's sheet for a group.
type RecordAttendanceRequest struct {
	GroupID     string            `json:"group_id" validate:"required"`
	SessionDate time.Time         `json:"session_date" validate:"required"`
	Entries     []AttendanceEntry `json:"entries" validate:"required,dive"`
	RecordedBy  string            `json:"-"`
}

// AttendanceService records class-session attendance, the fact source
// for the attendance rating component. Writing a sheet recomputes
// every touched rating and queues the group re-rank.
type AttendanceService struct {
	attendance attendanceRepo
	ratings    ratingRecomputer
	queue      resolveQueue

	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceRepo, ratings ratingRecomputer, queue resolveQueue, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		ratings:    ratings,
		queue:      queue,
		validator:  validate,
		logger:     logger,
	}
}

// RecordSession upserts a session sheet. Re-submitting the same
// (group, student, date) overwrites the earlier status.
func (s *AttendanceService) RecordSession(ctx context.Context, req RecordAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
		}
		records = append(records, models.AttendanceRecord{
			GroupID:     req.GroupID,
			StudentID:   entry.StudentID,
			SessionDate: req.SessionDate,
			Status:      entry.Status,
			Notes:       entry.Notes,
			RecordedBy:  req.RecordedBy,
		})
	}
	if err := s.attendance.BulkUpsert(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
	}

	for _, record := range records {
		if _, err := s.ratings.Recompute(ctx, record.StudentID, req.GroupID); err != nil {
			s.logger.Warn("attendance recompute failed",
				zap.String("student_id", record.StudentID),
				zap.String("group_id", req.GroupID),
				zap.Error(err))
		}
	}
	s.enqueueResolve(req.GroupID)
	return nil
}

// List returns attendance records for the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	records, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

func (s *AttendanceService) enqueueResolve(groupID string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeResolveGroup, Payload: groupID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue group resolve", zap.String("group_id", groupID), zap.Error(err))
	}
}
