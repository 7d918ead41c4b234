package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"minichat/internal/live"
	"minichat/internal/models"
	"minichat/internal/observability"
)

const writeWait = 10 * time.Second

// Documents is the part of the document store the live endpoints need.
type Documents interface {
	GetChat(ctx context.Context, chatID string) (models.Conversation, error)
	WatchChats(ctx context.Context, userID string) *live.Subscription[[]models.Conversation]
	WatchMessages(ctx context.Context, chatID string) *live.Subscription[[]models.Message]
}

// LiveHandler streams live-query snapshots over websockets. Routes are
// expected behind the auth middleware, which stores the caller under "userID".
type LiveHandler struct {
	hub  *Hub
	docs Documents
}

func NewLiveHandler(hub *Hub, docs Documents) *LiveHandler {
	return &LiveHandler{hub: hub, docs: docs}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChats streams the caller's conversations.
func (h *LiveHandler) HandleChats(c *gin.Context) {
	userID := c.GetString("userID")
	serve(h.hub, c, KindChats, userID, func(ctx context.Context) *live.Subscription[[]models.Conversation] {
		return h.docs.WatchChats(ctx, userID)
	}, func(chats []models.Conversation) models.SnapshotEvent {
		if chats == nil {
			chats = []models.Conversation{}
		}
		return models.SnapshotEvent{Type: KindChats, Conversations: chats}
	})
}

// HandleMessages streams one conversation's messages to a member.
func (h *LiveHandler) HandleMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	chat, err := h.docs.GetChat(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if !chat.HasMember(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	serve(h.hub, c, KindMessages, chatID, func(ctx context.Context) *live.Subscription[[]models.Message] {
		return h.docs.WatchMessages(ctx, chatID)
	}, func(msgs []models.Message) models.SnapshotEvent {
		return models.SnapshotEvent{Type: KindMessages, Messages: msgs}
	})
}

func serve[T any](hub *Hub, c *gin.Context, kind, resourceID string, subscribe func(context.Context) *live.Subscription[T], snapshot func(T) models.SnapshotEvent) {
	ctx, span := otel.Tracer("minichat/ws").Start(c.Request.Context(), "ws.handshake")
	traceID := span.SpanContext().TraceID().String()
	span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      c.GetString("userID"),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestID(c),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	hub.Add(kind, resourceID, conn, info)

	// The request context ends when the handler returns, so the stream gets its own.
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := subscribe(ctx)

	go func() {
		var closeReason string
		defer func() {
			sub.Close()
			cancel()
			hub.Remove(kind, resourceID, conn, closeReason)
			conn.Close()
		}()

		readErr := make(chan error, 1)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					readErr <- err
					return
				}
			}
		}()

		for {
			select {
			case err := <-readErr:
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					hub.ReportError(kind, resourceID, conn, err)
				}
				return
			case result, ok := <-sub.C:
				if !ok {
					closeReason = "subscription ended"
					if err := sub.Err(); err != nil {
						log.Printf("live query ended kind=%s resource_id=%s: %v", kind, resourceID, err)
						closeReason = err.Error()
						_ = writeJSON(conn, models.SnapshotEvent{Type: "error", Error: "live query failed"})
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "live query failed"), time.Now().Add(writeWait))
					}
					return
				}
				if err := writeJSON(conn, snapshot(result)); err != nil {
					closeReason = err.Error()
					hub.ReportError(kind, resourceID, conn, err)
					return
				}
			}
		}
	}()
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
