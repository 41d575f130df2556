package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/pkg/jobs"
)

// RankWorker consumes resolve_group jobs from the background queue and
// runs the full group re-rank.
type RankWorker struct {
	ratings *RatingService
	logger  *zap.Logger
}

// NewRankWorker constructs RankWorker.
func NewRankWorker(ratings *RatingService, logger *zap.Logger) *RankWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankWorker{ratings: ratings, logger: logger}
}

// Handle processes one queued job. Non-resolve jobs are ignored so the
// queue can be shared.
func (w *RankWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeResolveGroup {
		return nil
	}
	groupID, ok := job.Payload.(string)
	if !ok || groupID == "" {
		return fmt.Errorf("resolve job %s has no group payload", job.ID)
	}
	if _, err := w.ratings.ResolveGroup(ctx, groupID); err != nil {
		return fmt.Errorf("resolve group %s: %w", groupID, err)
	}
	w.logger.Debug("group re-ranked", zap.String("group_id", groupID))
	return nil
}
