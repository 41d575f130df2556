package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-engage-api/internal/service"
	appErrors "github.com/noah-isme/sma-engage-api/pkg/errors"
	"github.com/noah-isme/sma-engage-api/pkg/response"
)

// MessageHandler exposes direct-messaging endpoints.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler constructs handler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send godoc
// @Summary Send a direct message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	message, err := h.messages.Send(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, message, nil)
}

// Conversation godoc
// @Summary List the conversation with another user, oldest first
// @Tags Messages
// @Produce json
// @Param peerId path string true "Peer user ID"
// @Success 200 {object} response.Envelope
// @Router /conversations/{peerId} [get]
func (h *MessageHandler) Conversation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	messages, err := h.messages.Conversation(c.Request.Context(), claims.UserID, c.Param("peerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// MarkRead godoc
// @Summary Mark a received message as read
// @Tags Messages
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} response.Envelope
// @Router /messages/{id}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "read"}, nil)
}
