package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type messageRepo interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	ListConversation(ctx context.Context, userID, peerID string) ([]models.Message, error)
	MarkRead(ctx context.Context, id, recipientID string) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SendMessageRequest is the direct-message payload.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

// MessageService handles direct messages. Delivery is pushed to the
// recipient's realtime channel best effort; persistence is the source
// of truth.
type MessageService struct {
	messages messageRepo
	users    userReader
	notifier eventNotifier

	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs MessageService.
func NewMessageService(messages messageRepo, users userReader, notifier eventNotifier, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		messages:  messages,
		users:     users,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Send stores a message and notifies the recipient.
func (s *MessageService) Send(ctx context.Context, senderID string, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message body empty")
	}
	if senderID == req.RecipientID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}
	if _, err := s.users.FindByID(ctx, req.RecipientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}

	message := &models.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, req.RecipientID, models.EventMessageReceived, message)
	}
	return message, nil
}

// Conversation returns the exchange between the caller and a peer.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	messages, err := s.messages.ListConversation(ctx, userID, peerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversation")
	}
	return messages, nil
}

// MarkRead flags a message read. Only the recipient can do so.
func (s *MessageService) MarkRead(ctx context.Context, messageID, recipientID string) error {
	if err := s.messages.MarkRead(ctx, messageID, recipientID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "message not found or already read")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark message read")
	}
	return nil
}
