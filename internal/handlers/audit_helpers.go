package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"minichat/internal/models"
)

// Documents is the document-store surface served over REST.
type Documents interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	SetUser(ctx context.Context, user models.User) error
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context, q models.UserQuery) (models.UserPage, error)
	GetChat(ctx context.Context, chatID string) (models.Conversation, error)
	CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error)
	UpdateChatSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) error
	AddMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

func callerID(c *gin.Context) string {
	return c.GetString("userID")
}

// loadMemberChat fetches the chat and aborts unless the caller is a member.
func loadMemberChat(c *gin.Context, docs Documents) (models.Conversation, bool) {
	chat, err := docs.GetChat(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return models.Conversation{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return models.Conversation{}, false
	}
	if !chat.HasMember(callerID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return models.Conversation{}, false
	}
	return chat, true
}
