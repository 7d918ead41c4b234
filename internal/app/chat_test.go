package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minichat/internal/docstore"
	"minichat/internal/models"
)

func openTestChat(t *testing.T, f *fixture) (*Chat, models.User, models.Conversation) {
	t.Helper()
	me := f.user(t, "me", "Me")
	f.user(t, "you", "You")
	conv := f.chat(t, models.ConversationID("me", "you"), time.Time{}, "me", "you")
	c := OpenChat(context.Background(), f.backend, me, conv)
	t.Cleanup(c.Close)
	return c, me, conv
}

func TestSendTextUpdatesSummary(t *testing.T) {
	f := newFixture(t)
	c, me, conv := openTestChat(t, f)
	ctx := context.Background()

	msg, err := c.Send(ctx, "  hello ", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)

	stored, err := f.store.GetChat(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "hello", stored.LastMessage.Text)
	assert.Equal(t, me.ID, stored.LastMessage.SenderID)
	assert.False(t, stored.UpdatedAt.Before(msg.CreatedAt))
}

func TestSendMediaOnlyUsesPlaceholder(t *testing.T) {
	f := newFixture(t)
	c, _, conv := openTestChat(t, f)
	ctx := context.Background()

	msg, err := c.Send(ctx, "", "http://localhost/media/x.png")
	require.NoError(t, err)
	assert.Empty(t, msg.Text)

	stored, err := f.store.GetChat(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, MediaPlaceholder, stored.LastMessage.Text)
}

func TestSendEmptyWritesNothing(t *testing.T) {
	f := newFixture(t)
	c, _, conv := openTestChat(t, f)
	ctx := context.Background()

	_, err := c.Send(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, f.docs.adds.Load())
	assert.Zero(t, f.docs.summaries.Load())

	msgs, err := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	stored, err := f.store.GetChat(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastMessage)
}

func TestSendWhitespaceMediaURLIsEmpty(t *testing.T) {
	f := newFixture(t)
	c, _, conv := openTestChat(t, f)
	ctx := context.Background()

	_, err := c.Send(ctx, " ", " \t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, f.docs.adds.Load())

	stored, err := f.store.GetChat(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastMessage)
}

func TestOpenChatDoesNotWaitForPartner(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	f.user(t, "you", "You")
	conv := f.chat(t, models.ConversationID("me", "you"), time.Time{}, "me", "you")
	f.docs.stallReads = true

	opened := make(chan *Chat, 1)
	go func() { opened <- OpenChat(context.Background(), f.backend, me, conv) }()

	var c *Chat
	select {
	case c = <-opened:
	case <-time.After(time.Second):
		t.Fatal("OpenChat blocked on the partner lookup")
	}
	assert.Equal(t, UnknownName, c.Title())

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on the partner lookup")
	}
}

func TestChatStateScrollsToNewest(t *testing.T) {
	f := newFixture(t)
	c, _, _ := openTestChat(t, f)
	ctx := context.Background()

	require.Eventually(t, func() bool { return c.Title() == "You" }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !c.State().Loading }, time.Second, 5*time.Millisecond)
	assert.Equal(t, -1, c.State().ScrollTo)

	for _, text := range []string{"one", "two", "three"} {
		_, err := c.Send(ctx, text, "")
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return len(c.State().Messages) == 3 }, time.Second, 5*time.Millisecond)
	st := c.State()
	assert.Equal(t, 2, st.ScrollTo)
	assert.Equal(t, "three", st.Messages[st.ScrollTo].Text)
	require.NotNil(t, st.Partner)
	assert.Equal(t, "you", st.Partner.ID)
}

func TestChatCloseStopsUpdates(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	conv := f.chat(t, "dm_close", time.Time{}, "me", "you")
	topic := docstore.MessagesTopic(conv.ID)

	c := OpenChat(context.Background(), f.backend, me, conv)
	require.Eventually(t, func() bool { return f.store.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)

	c.Close()
	assert.Equal(t, 0, f.store.Subscribers(topic))

	_, err := f.store.AddMessage(context.Background(), conv.ID, models.Message{Text: "late", SenderID: "you"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.State().Messages)
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "hi", SummaryText(models.Message{Text: "hi", MediaURL: "http://x"}))
	assert.Equal(t, MediaPlaceholder, SummaryText(models.Message{MediaURL: "http://x"}))
}
