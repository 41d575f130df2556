package models

import "time"

// Message is a direct message between two users. Delivery to online
// recipients happens through the realtime notifier.
type Message struct {
	ID          string     `db:"id" json:"id"`
	SenderID    string     `db:"sender_id" json:"sender_id"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Body        string     `db:"body" json:"body"`
	Read        bool       `db:"read" json:"read"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// MessageFilter scopes conversation listing queries.
type MessageFilter struct {
	UserID     string
	PeerID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
