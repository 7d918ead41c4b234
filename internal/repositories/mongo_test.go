package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minichat/internal/db"
	"minichat/internal/models"
)

func TestMongoChatLifecycle(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, uri, "minichat_test")
	require.NoError(t, err)
	defer func() {
		_ = client.Drop(context.Background())
		_ = client.Close(context.Background())
	}()

	store := NewMongoStore(client)

	chat, created, err := store.CreateChatIfAbsent(ctx, models.Conversation{ID: "dm_test", Members: []string{"a", "b"}})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"a", "b"}, chat.Members)

	_, created, err = store.CreateChatIfAbsent(ctx, models.Conversation{ID: "dm_test", Members: []string{"a", "b"}})
	require.NoError(t, err)
	assert.False(t, created)

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err = store.UpdateSummary(ctx, "dm_test", models.LastMessage{Text: "📷 Image", CreatedAt: now, SenderID: "a"}, now)
	require.NoError(t, err)

	list, err := store.ListChats(ctx, "b")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "📷 Image", list[0].LastMessage.Text)

	require.NoError(t, store.UpsertUser(ctx, models.User{ID: "a", Name: "Alice"}))
	users, err := store.BulkUsers(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
}
