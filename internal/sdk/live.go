package sdk

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"minichat/internal/live"
	"minichat/internal/models"
)

// WatchChats follows the signed-in user's conversations. The server scopes
// the query to the session, so userID only documents intent.
func (c *Client) WatchChats(ctx context.Context, userID string) *live.Subscription[[]models.Conversation] {
	return watch(ctx, c, "/ws/chats", func(ev models.SnapshotEvent) []models.Conversation {
		return ev.Conversations
	})
}

// WatchMessages follows a conversation's messages, oldest first.
func (c *Client) WatchMessages(ctx context.Context, chatID string) *live.Subscription[[]models.Message] {
	return watch(ctx, c, "/ws/chats/"+url.PathEscape(chatID)+"/messages", func(ev models.SnapshotEvent) []models.Message {
		return ev.Messages
	})
}

func watch[T any](ctx context.Context, c *Client, path string, pick func(models.SnapshotEvent) T) *live.Subscription[T] {
	token, err := c.token()
	if err != nil {
		return live.Failed[T](err)
	}
	target := c.wsURL(path, token)

	return live.Stream(ctx, nil, func(ctx context.Context, emit func(T) bool) error {
		conn, resp, err := c.dialer.DialContext(ctx, target, nil)
		if err != nil {
			if resp != nil {
				defer resp.Body.Close()
				return decodeError(resp)
			}
			return fmt.Errorf("dial %s: %w", path, err)
		}
		defer conn.Close()

		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				conn.Close()
			case <-stop:
			}
		}()

		for {
			var ev models.SnapshotEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return nil
				}
				return fmt.Errorf("live query %s: %w", path, err)
			}
			if ev.Type == "error" {
				return fmt.Errorf("live query %s: %s", path, ev.Error)
			}
			if !emit(pick(ev)) {
				return nil
			}
		}
	})
}

func (c *Client) wsURL(path, token string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path + "?access_token=" + url.QueryEscape(token)
}
