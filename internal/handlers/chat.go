package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"minichat/internal/docstore"
	"minichat/internal/models"
)

// ChatHandler serves the chats collection and its messages.
type ChatHandler struct {
	docs Documents
	now  func() time.Time
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(docs Documents) *ChatHandler {
	return &ChatHandler{docs: docs, now: time.Now}
}

// PutChat creates the one-to-one conversation unless it already exists and
// returns the stored document either way. The path id must be the one derived
// from the two members.
func (h *ChatHandler) PutChat(c *gin.Context) {
	var req models.Conversation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = c.Param("chat_id")

	if req.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group conversations cannot be created"})
		return
	}
	if !req.HasMember(callerID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "caller must be a member"})
		return
	}
	if len(req.Members) != 2 || len(uniqueMembers(req.Members)) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a direct conversation has exactly two members"})
		return
	}
	if req.ID != models.ConversationID(req.Members[0], req.Members[1]) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat id does not match its members"})
		return
	}

	chat, created, err := h.docs.CreateChatIfAbsent(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}
	if !chat.HasMember(callerID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}

// GetChat returns one conversation to a member.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, ok := loadMemberChat(c, h.docs)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, chat)
}

// UpdateSummary overwrites the last-message summary of a conversation.
func (h *ChatHandler) UpdateSummary(c *gin.Context) {
	chat, ok := loadMemberChat(c, h.docs)
	if !ok {
		return
	}

	var req models.ChatSummaryUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Timestamps never run ahead of the server clock.
	now := h.now()
	if req.UpdatedAt.IsZero() || req.UpdatedAt.After(now) {
		req.UpdatedAt = now
	}
	if req.LastMessage.CreatedAt.After(now) {
		req.LastMessage.CreatedAt = now
	}

	if err := h.docs.UpdateChatSummary(c.Request.Context(), chat.ID, req.LastMessage, req.UpdatedAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update chat"})
		return
	}
	c.Status(http.StatusNoContent)
}

// PostMessage appends a message authored by the caller.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	chat, ok := loadMemberChat(c, h.docs)
	if !ok {
		return
	}

	var req models.Message
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SenderID != "" && req.SenderID != callerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "sender must be the caller"})
		return
	}
	req.SenderID = callerID(c)
	req.ID = ""
	req.CreatedAt = time.Time{}

	msg, err := h.docs.AddMessage(c.Request.Context(), chat.ID, req)
	if err != nil {
		if errors.Is(err, docstore.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns a conversation's messages oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	chat, ok := loadMemberChat(c, h.docs)
	if !ok {
		return
	}

	msgs, err := h.docs.ListMessages(c.Request.Context(), chat.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func uniqueMembers(members []string) map[string]struct{} {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m != "" {
			set[m] = struct{}{}
		}
	}
	return set
}
