package models

import "time"

// SystemMetrics represents system level counters captured from
// instrumentation, exposed on the admin dashboard endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RecomputeTotal           uint64    `json:"recompute_total"`
	ResolveTotal             uint64    `json:"resolve_total"`
	ClaimTotal               uint64    `json:"claim_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// EventType identifies realtime notification payloads pushed over the
// per-user pub/sub channel.
type EventType string

const (
	EventRankChanged      EventType = "RANK_CHANGED"
	EventRatingUpdated    EventType = "RATING_UPDATED"
	EventPointsChanged    EventType = "POINTS_CHANGED"
	EventRewardClaimed    EventType = "REWARD_CLAIMED"
	EventAchievement      EventType = "ACHIEVEMENT_EARNED"
	EventMessageReceived  EventType = "MESSAGE_RECEIVED"
	EventCompetitionPrize EventType = "COMPETITION_PRIZE"
)

// Event is the JSON payload published to user:{id}:events.
type Event struct {
	Type       EventType   `json:"type"`
	UserID     string      `json:"user_id"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
