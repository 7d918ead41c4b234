package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"minichat/internal/observability"
)

const (
	KindChats    = "chats"
	KindMessages = "messages"
)

type roomKey struct {
	kind       string
	resourceID string
}

// Hub keeps track of open live-query websockets per room and reports their
// lifecycle as ws_events.
type Hub struct {
	rooms  map[roomKey]map[*websocket.Conn]ConnInfo
	events *observability.Events
	mu     sync.RWMutex
}

// NewHub creates an empty hub. events may be nil.
func NewHub(events *observability.Events) *Hub {
	return &Hub{
		rooms:  make(map[roomKey]map[*websocket.Conn]ConnInfo),
		events: events,
	}
}

// Add registers a connection in a room.
func (h *Hub) Add(kind, resourceID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	key := roomKey{kind: kind, resourceID: resourceID}
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[key][conn] = info
	h.mu.Unlock()

	observability.IncWSActive(kind)
	h.publish(context.Background(), kind, resourceID, "ws_connect", info, "")
}

// Remove drops a connection and reports the disconnect with reason.
func (h *Hub) Remove(kind, resourceID string, conn *websocket.Conn, reason string) {
	h.mu.Lock()
	key := roomKey{kind: kind, resourceID: resourceID}
	info, ok := h.rooms[key][conn]
	if ok {
		delete(h.rooms[key], conn)
		if len(h.rooms[key]) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	observability.DecWSActive(kind)
	h.publish(context.Background(), kind, resourceID, "ws_disconnect", info, reason)
}

// ReportError records a failed read or write on a registered connection.
func (h *Hub) ReportError(kind, resourceID string, conn *websocket.Conn, err error) {
	h.mu.RLock()
	info, ok := h.rooms[roomKey{kind: kind, resourceID: resourceID}][conn]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.publish(context.Background(), kind, resourceID, "ws_error", info, err.Error())
}

// Count returns the number of connections in a room.
func (h *Hub) Count(kind, resourceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey{kind: kind, resourceID: resourceID}])
}

// CloseAll sends a going-away close frame to every connection.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var conns []*websocket.Conn
	for _, room := range h.rooms {
		for conn := range room {
			if conn != nil {
				conns = append(conns, conn)
			}
		}
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(time.Second)
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
	}
}

func (h *Hub) publish(ctx context.Context, kind, resourceID, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(kind, event)
	ctx = observability.WithRequestID(ctx, info.RequestID)

	var duration int64
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	h.events.Publish(ctx, wsRoutingKey(kind), "ws_events", event, map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"trace_id":    info.TraceID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": info.identity(),
	})
}

func wsRoutingKey(kind string) string {
	return "ws_events." + kind
}
