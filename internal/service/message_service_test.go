package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-engage-api/internal/models"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
)

type mockMessageRepo struct {
	messages map[string]models.Message
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{messages: make(map[string]models.Message)}
}

func (m *mockMessageRepo) Create(ctx context.Context, message *models.Message) error {
	message.ID = "m-" + message.SenderID + "-" + message.RecipientID
	m.messages[message.ID] = *message
	return nil
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := msg
	return &copied, nil
}

func (m *mockMessageRepo) ListConversation(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if (msg.SenderID == userID && msg.RecipientID == peerID) || (msg.SenderID == peerID && msg.RecipientID == userID) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, id, recipientID string) error {
	msg, ok := m.messages[id]
	if !ok || msg.RecipientID != recipientID || msg.Read {
		return sql.ErrNoRows
	}
	msg.Read = true
	m.messages[id] = msg
	return nil
}

type mockUserReader struct {
	users map[string]models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := u
	return &copied, nil
}

func TestSendMessageNotifiesRecipient(t *testing.T) {
	repo := newMockMessageRepo()
	users := &mockUserReader{users: map[string]models.User{"u2": {ID: "u2"}}}
	notifier := &mockNotifier{}
	svc := NewMessageService(repo, users, notifier, nil, nil)

	message, err := svc.Send(context.Background(), "u1", SendMessageRequest{RecipientID: "u2", Body: "hi"})
	require.NoError(t, err)
	assert.False(t, message.Read)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventMessageReceived, notifier.events[0].Type)
	assert.Equal(t, "u2", notifier.events[0].UserID)
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), &mockUserReader{users: map[string]models.User{}}, &mockNotifier{}, nil, nil)

	_, err := svc.Send(context.Background(), "u1", SendMessageRequest{RecipientID: "ghost", Body: "hi"})
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestSendMessageToSelf(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), &mockUserReader{users: map[string]models.User{"u1": {ID: "u1"}}}, &mockNotifier{}, nil, nil)

	_, err := svc.Send(context.Background(), "u1", SendMessageRequest{RecipientID: "u1", Body: "hi"})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestMarkReadOnlyRecipient(t *testing.T) {
	repo := newMockMessageRepo()
	repo.messages["m1"] = models.Message{ID: "m1", SenderID: "u1", RecipientID: "u2"}
	svc := NewMessageService(repo, &mockUserReader{}, &mockNotifier{}, nil, nil)

	err := svc.MarkRead(context.Background(), "m1", "u1")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
	require.NoError(t, svc.MarkRead(context.Background(), "m1", "u2"))
	assert.True(t, repo.messages["m1"].Read)
}
