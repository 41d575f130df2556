package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

type recordingPublisher struct {
	channel string
	message interface{}
	calls   int
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.message = message
	p.calls++
	return redis.NewIntResult(1, nil)
}

func TestNotifierPublishesToUserChannel(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewNotifier(pub, "user", zap.NewNop(), true)

	notifier.Notify(context.Background(), "stu-1", models.EventPointsChanged, map[string]int{"balance": 40})

	require.Equal(t, 1, pub.calls)
	assert.Equal(t, "user:stu-1:events", pub.channel)

	raw, ok := pub.message.([]byte)
	require.True(t, ok)
	var event models.Event
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, models.EventPointsChanged, event.Type)
	assert.Equal(t, "stu-1", event.UserID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestNotifierDisabledDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewNotifier(pub, "", zap.NewNop(), false)

	notifier.Notify(context.Background(), "stu-1", models.EventRankChanged, nil)

	assert.Zero(t, pub.calls)
}
