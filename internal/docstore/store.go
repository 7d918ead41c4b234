// Package docstore exposes the users, chats and chats/{id}/messages
// collections with point reads, writes and live queries.
package docstore

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"minichat/internal/live"
	"minichat/internal/models"
	"minichat/internal/observability"
	"minichat/internal/repositories"
)

const (
	defaultPageSize = 30
	maxPageSize     = 100
	eventsRouting   = "chat.events"
)

var ErrEmptyMessage = errors.New("message needs text or media")

// ChatsTopic is notified whenever a conversation containing userID changes.
func ChatsTopic(userID string) string { return "members/" + userID + "/chats" }

// MessagesTopic is notified whenever a message is appended to chatID.
func MessagesTopic(chatID string) string { return "chats/" + chatID + "/messages" }

// Store is the document-store facade. It is safe for concurrent use.
type Store struct {
	users    repositories.UserRepository
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	hub      *live.Hub
	events   *observability.Events
	now      func() time.Time
}

// New builds a Store. events may be nil.
func New(users repositories.UserRepository, chats repositories.ChatRepository, messages repositories.MessageRepository, events *observability.Events) *Store {
	return &Store{
		users:    users,
		chats:    chats,
		messages: messages,
		hub:      live.NewHub(),
		events:   events,
		now:      time.Now,
	}
}

// Subscribers is the live-query probe: the number of open watchers of topic.
func (s *Store) Subscribers(topic string) int {
	return s.hub.Subscribers(topic)
}

func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *Store) SetUser(ctx context.Context, user models.User) error {
	return s.users.UpsertUser(ctx, user)
}

// GetUsers returns the profiles that exist among ids, deduplicated.
func (s *Store) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return s.users.BulkUsers(ctx, unique)
}

// ListUsers pages through users ordered by id.
func (s *Store) ListUsers(ctx context.Context, q models.UserQuery) (models.UserPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	users, err := s.users.ListUsers(ctx, q)
	if err != nil {
		return models.UserPage{}, err
	}
	page := models.UserPage{Users: users}
	if len(users) == q.Limit {
		page.Next = users[len(users)-1].ID
	}
	return page, nil
}

func (s *Store) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	return s.chats.GetChat(ctx, chatID)
}

// ListChats returns the conversations containing userID in storage order.
func (s *Store) ListChats(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.chats.ListChats(ctx, userID)
}

// CreateChatIfAbsent stores chat unless a conversation with its id exists.
func (s *Store) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	stored, created, err := s.chats.CreateChatIfAbsent(ctx, chat)
	if err != nil {
		return models.Conversation{}, false, err
	}
	if created {
		s.notifyMembers(stored)
		s.events.Publish(ctx, eventsRouting, "chat_events", "chat_created", map[string]interface{}{
			"chat_id": stored.ID,
			"members": stored.Members,
		})
	}
	return stored, created, nil
}

// UpdateChatSummary overwrites the last-message summary and updated-at.
func (s *Store) UpdateChatSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) error {
	chat, err := s.chats.UpdateSummary(ctx, chatID, last, updatedAt)
	if err != nil {
		return err
	}
	s.notifyMembers(chat)
	s.events.Publish(ctx, eventsRouting, "chat_events", "chat_updated", map[string]interface{}{
		"chat_id":    chat.ID,
		"updated_at": updatedAt,
	})
	return nil
}

// AddMessage appends msg to chatID, assigning an id and creation time when
// absent. The conversation summary is not touched.
func (s *Store) AddMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Empty() {
		return models.Message{}, ErrEmptyMessage
	}
	if _, err := s.chats.GetChat(ctx, chatID); err != nil {
		return models.Message{}, err
	}
	msg.ChatID = chatID
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	stored, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}
	observability.IncMessageStored(messageKind(stored))
	s.hub.Notify(MessagesTopic(chatID))
	s.events.Publish(ctx, eventsRouting, "chat_events", "message_added", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": stored.ID,
		"sender_id":  stored.SenderID,
	})
	return stored, nil
}

func (s *Store) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	return s.messages.ListMessages(ctx, chatID)
}

// WatchChats is the live query "chats where members contains userID".
func (s *Store) WatchChats(ctx context.Context, userID string) *live.Subscription[[]models.Conversation] {
	return watch(ctx, s.hub, ChatsTopic(userID), "chats", func(ctx context.Context) ([]models.Conversation, error) {
		return s.chats.ListChats(ctx, userID)
	})
}

// WatchMessages is the live query over one conversation's messages ordered by creation.
func (s *Store) WatchMessages(ctx context.Context, chatID string) *live.Subscription[[]models.Message] {
	return watch(ctx, s.hub, MessagesTopic(chatID), "messages", func(ctx context.Context) ([]models.Message, error) {
		msgs, err := s.messages.ListMessages(ctx, chatID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
		return msgs, nil
	})
}

func (s *Store) notifyMembers(chat models.Conversation) {
	topics := make([]string, 0, len(chat.Members))
	for _, member := range chat.Members {
		topics = append(topics, ChatsTopic(member))
	}
	s.hub.Notify(topics...)
}

func watch[T any](ctx context.Context, hub *live.Hub, topic, kind string, load func(context.Context) (T, error)) *live.Subscription[T] {
	changes, cancel := hub.Watch(topic)
	observability.IncLiveSubscriptions(kind)
	release := func() {
		cancel()
		observability.DecLiveSubscriptions(kind)
	}
	return live.Stream(ctx, release, func(ctx context.Context, emit func(T) bool) error {
		for {
			result, err := load(ctx)
			if err != nil {
				log.Printf("live query failed topic=%s: %v", topic, err)
				return err
			}
			if !emit(result) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}
		}
	})
}

func messageKind(msg models.Message) string {
	switch {
	case msg.Text != "" && msg.MediaURL != "":
		return "mixed"
	case msg.MediaURL != "":
		return "media"
	default:
		return "text"
	}
}
