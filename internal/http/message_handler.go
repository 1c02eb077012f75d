package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guestbook/internal/domain"
	"guestbook/internal/service"
)

// MessageStore es el subconjunto de service.MessageService que usan los handlers.
type MessageStore interface {
	SubmitMessage(ctx context.Context, name, message string) (domain.Message, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
	CountMessages(ctx context.Context) (int64, error)
}

// MessageHandler expone los endpoints /api/messages.
type MessageHandler struct {
	logger   *zap.Logger
	messages MessageStore
}

// NewMessageHandler crea una instancia de MessageHandler.
func NewMessageHandler(logger *zap.Logger, messages MessageStore) *MessageHandler {
	return &MessageHandler{logger: logger, messages: messages}
}

// CreateMessage maneja POST /api/messages.
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.messages.SubmitMessage(c.Request.Context(), req.Name, req.Message)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
		case errors.Is(err, service.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database is not available, try again later"})
		default:
			h.logger.Error("save message failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error while saving message"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Message saved successfully",
		"data":    msg,
	})
}

// ListMessages maneja GET /api/messages.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	messages, err := h.messages.ListMessages(c.Request.Context())
	if err != nil {
		h.logger.Error("list messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error while fetching messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": messages})
}

// CountMessages maneja GET /api/messages/count.
func (h *MessageHandler) CountMessages(c *gin.Context) {
	count, err := h.messages.CountMessages(c.Request.Context())
	if err != nil {
		h.logger.Error("count messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error while getting message count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}
