package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"minichat/internal/mocks"
	"minichat/internal/models"
	"minichat/internal/observability"
	"minichat/internal/repositories"
)

func TestWatchChatsEndsWithLoadError(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	store := New(new(mocks.UserRepositoryMock), chats, new(mocks.MessageRepositoryMock), nil)

	chats.On("ListChats", mock.Anything, "u1").Return(nil, assert.AnError).Once()

	sub := store.WatchChats(context.Background(), "u1")
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	assert.ErrorIs(t, sub.Err(), assert.AnError)
	assert.Equal(t, 0, store.Subscribers(ChatsTopic("u1")))
	chats.AssertExpectations(t)
}

func TestAddMessagePublishesEvent(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	pub := new(mocks.PublisherMock)
	store := New(new(mocks.UserRepositoryMock), chats, messages, observability.NewEvents(pub))

	chats.On("GetChat", mock.Anything, "c1").Return(models.Conversation{ID: "c1", Members: []string{"a", "b"}}, nil).Once()
	messages.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.ChatID == "c1" && m.Text == "hi" && m.ID != "" && !m.CreatedAt.IsZero()
	})).Return(models.Message{ID: "m1", ChatID: "c1", Text: "hi", SenderID: "a"}, nil).Once()

	stored, err := store.AddMessage(context.Background(), "c1", models.Message{Text: "  hi ", SenderID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Text)

	require.Len(t, pub.Published(), 1)
	env, ok := pub.Published()[0].Event.(observability.EventEnvelope)
	require.True(t, ok)
	assert.Equal(t, "message_added", env.EventName)
	assert.Equal(t, "chat_events", env.EventType)
	assert.Equal(t, "m1", env.Payload.(map[string]interface{})["message_id"])

	chats.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestConversationLifecyclePublishesEvents(t *testing.T) {
	mem := repositories.NewMemory()
	pub := new(mocks.PublisherMock)
	store := New(mem, mem, mem, observability.NewEvents(pub))
	ctx := context.Background()

	_, _, err := store.CreateChatIfAbsent(ctx, models.Conversation{ID: "c1", Members: []string{"a", "b"}})
	require.NoError(t, err)
	_, created, err := store.CreateChatIfAbsent(ctx, models.Conversation{ID: "c1", Members: []string{"a", "b"}})
	require.NoError(t, err)
	assert.False(t, created)

	msg, err := store.AddMessage(ctx, "c1", models.Message{Text: "hi", SenderID: "a"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateChatSummary(ctx, "c1", models.LastMessage{Text: "hi", CreatedAt: msg.CreatedAt, SenderID: "a"}, msg.CreatedAt))

	_, err = store.AddMessage(ctx, "c1", models.Message{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	assert.Equal(t, []string{"chat_created", "message_added", "chat_updated"}, pub.EventNames("chat.events"))
	assert.Empty(t, pub.EventNames("audit.events"))
}

func TestFailedPublishDoesNotFailWrite(t *testing.T) {
	mem := repositories.NewMemory()
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "chat.events", mock.Anything).Return(assert.AnError)
	store := New(mem, mem, mem, observability.NewEvents(pub))

	_, created, err := store.CreateChatIfAbsent(context.Background(), models.Conversation{ID: "c1", Members: []string{"a", "b"}})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"chat_created"}, pub.EventNames("chat.events"))
}

func TestUpdateChatSummaryPropagatesRepoError(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	store := New(new(mocks.UserRepositoryMock), chats, new(mocks.MessageRepositoryMock), nil)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	last := models.LastMessage{Text: "x", CreatedAt: at, SenderID: "a"}
	chats.On("UpdateSummary", mock.Anything, "c1", last, at).Return(nil, assert.AnError).Once()

	err := store.UpdateChatSummary(context.Background(), "c1", last, at)
	assert.ErrorIs(t, err, assert.AnError)
	chats.AssertExpectations(t)
}
