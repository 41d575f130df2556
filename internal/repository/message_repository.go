package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-engage-api/internal/models"
)

// MessageRepository persists direct messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a message repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, recipient_id, body, read, read_at, created_at)
        VALUES (:id, :sender_id, :recipient_id, :body, :read, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// FindByID returns a message by identifier.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	const query = `SELECT id, sender_id, recipient_id, body, read, read_at, created_at FROM messages WHERE id = $1 LIMIT 1`
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &message, nil
}

// ListConversation returns the two-way exchange between two users,
// oldest first.
func (r *MessageRepository) ListConversation(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	const query = `SELECT id, sender_id, recipient_id, body, read, read_at, created_at FROM messages
        WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
        ORDER BY created_at ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, userID, peerID); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return messages, nil
}

// MarkRead flags a message as read by its recipient.
func (r *MessageRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	const query = `UPDATE messages SET read = TRUE, read_at = $3 WHERE id = $1 AND recipient_id = $2 AND read = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, recipientID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark message read affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
