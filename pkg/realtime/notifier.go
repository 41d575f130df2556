package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

// Publisher is the subset of the Redis client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Notifier pushes rank/points/claim/message events onto a per-user
// Redis pub/sub channel. Delivery is best effort: publish failures are
// logged and never fail the originating business operation.
type Notifier struct {
	client        Publisher
	channelPrefix string
	logger        *zap.Logger
	enabled       bool
}

// NewNotifier constructs a notifier. A nil client disables publishing.
func NewNotifier(client Publisher, channelPrefix string, logger *zap.Logger, enabled bool) *Notifier {
	if channelPrefix == "" {
		channelPrefix = "user"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, channelPrefix: channelPrefix, logger: logger, enabled: enabled}
}

// Channel returns the pub/sub channel name for a user.
func (n *Notifier) Channel(userID string) string {
	return fmt.Sprintf("%s:%s:events", n.channelPrefix, userID)
}

// Notify publishes an event to the user's channel.
func (n *Notifier) Notify(ctx context.Context, userID string, eventType models.EventType, payload interface{}) {
	if n == nil || !n.enabled || n.client == nil {
		return
	}

	event := models.Event{
		Type:       eventType,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	raw, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("failed to marshal realtime event", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, n.Channel(userID), raw).Err(); err != nil {
		n.logger.Warn("failed to publish realtime event",
			zap.String("user_id", userID),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
