package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minichat/internal/models"
	"minichat/internal/repositories"
)

func newTestStore() *Store {
	mem := repositories.NewMemory()
	return New(mem, mem, mem, nil)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestWatchMessagesDeliversInitialAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	_, _, err := store.CreateChatIfAbsent(ctx, models.Conversation{ID: "c1", Members: []string{"a", "b"}})
	require.NoError(t, err)

	sub := store.WatchMessages(ctx, "c1")
	defer sub.Close()

	assert.Empty(t, receive(t, sub.C))

	_, err = store.AddMessage(ctx, "c1", models.Message{SenderID: "a", Text: "hello"})
	require.NoError(t, err)

	msgs := receive(t, sub.C)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func TestWatchReleaseDropsSubscriber(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sub := store.WatchChats(ctx, "a")
	receive(t, sub.C)
	assert.Equal(t, 1, store.Subscribers(ChatsTopic("a")))

	sub.Close()
	<-sub.Done()
	assert.Equal(t, 0, store.Subscribers(ChatsTopic("a")))
}

func TestWatchChatsSeesCreateAndSummary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sub := store.WatchChats(ctx, "b")
	defer sub.Close()
	assert.Empty(t, receive(t, sub.C))

	_, created, err := store.CreateChatIfAbsent(ctx, models.Conversation{ID: "c1", Members: []string{"a", "b"}})
	require.NoError(t, err)
	require.True(t, created)
	assert.Len(t, receive(t, sub.C), 1)

	now := time.Now()
	require.NoError(t, store.UpdateChatSummary(ctx, "c1", models.LastMessage{Text: "hi", CreatedAt: now, SenderID: "a"}, now))
	chats := receive(t, sub.C)
	require.Len(t, chats, 1)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "hi", chats[0].LastMessage.Text)
}

func TestAddMessageRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	_, _, _ = store.CreateChatIfAbsent(ctx, models.Conversation{ID: "c1", Members: []string{"a", "b"}})

	_, err := store.AddMessage(ctx, "c1", models.Message{SenderID: "a", Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	msgs, err := store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAddMessageUnknownChat(t *testing.T) {
	_, err := newTestStore().AddMessage(context.Background(), "missing", models.Message{SenderID: "a", Text: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListUsersPaging(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, store.SetUser(ctx, models.User{ID: id}))
	}

	page, err := store.ListUsers(ctx, models.UserQuery{ExcludeID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "u2", page.Next)

	page, err = store.ListUsers(ctx, models.UserQuery{ExcludeID: "u1", After: page.Next, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "u3", page.Users[0].ID)
}

func TestGetUsersDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	require.NoError(t, store.SetUser(ctx, models.User{ID: "u1", Name: "Ann"}))

	users, err := store.GetUsers(ctx, []string{"u1", "u1", "ghost", ""})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ann", users[0].Name)
}
