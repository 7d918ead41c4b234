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

func waitLoaded(t *testing.T, l *ChatList, rows int) ChatListState {
	t.Helper()
	require.Eventually(t, func() bool {
		st := l.State()
		return !st.Loading && len(st.Rows) == rows
	}, time.Second, 5*time.Millisecond)
	return l.State()
}

func titles(rows []ChatRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Title
	}
	return out
}

func TestChatListOrdersByRecency(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	f.user(t, "a", "Ann")
	f.user(t, "b", "Ben")
	f.user(t, "c", "Cat")

	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t3 := t1.Add(time.Hour)
	t2 := t1.Add(2 * time.Hour)
	f.chat(t, "chat1", t1, me.ID, "a")
	f.chat(t, "chat2", t2, me.ID, "b")
	f.chat(t, "chat3", t3, me.ID, "c")
	f.chat(t, "old", time.Time{}, me.ID, "ghost")

	l := NewChatList(context.Background(), f.backend, me.ID)
	defer l.Close()

	st := waitLoaded(t, l, 4)
	assert.Equal(t, []string{"chat2", "chat3", "chat1", "old"}, []string{st.Rows[0].ChatID, st.Rows[1].ChatID, st.Rows[2].ChatID, st.Rows[3].ChatID})
	assert.Equal(t, []string{"Ben", "Cat", "Ann", UnknownName}, titles(st.Rows))
	assert.False(t, st.Rows[3].Resolved)
}

func TestChatListFollowsSummaryUpdates(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	f.user(t, "a", "Ann")
	f.user(t, "b", "Ben")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.chat(t, "chat_a", base.Add(time.Minute), me.ID, "a")
	f.chat(t, "chat_b", base, me.ID, "b")

	l := NewChatList(context.Background(), f.backend, me.ID)
	defer l.Close()
	waitLoaded(t, l, 2)

	last := models.LastMessage{Text: "hey", CreatedAt: base.Add(time.Hour), SenderID: "b"}
	require.NoError(t, f.store.UpdateChatSummary(context.Background(), "chat_b", last, last.CreatedAt))

	assert.Eventually(t, func() bool {
		rows := l.State().Rows
		return len(rows) == 2 && rows[0].ChatID == "chat_b" && rows[0].Preview == "hey"
	}, time.Second, 5*time.Millisecond)
}

func TestChatListSearchAndGroups(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	f.user(t, "a", "Annabel")
	f.user(t, "b", "Ben")
	now := time.Now()
	f.chat(t, "chat_a", now, me.ID, "a")
	f.chat(t, "chat_b", now.Add(-time.Minute), me.ID, "b")
	_, _, err := f.store.CreateChatIfAbsent(context.Background(), models.Conversation{
		ID: "grp", Members: []string{me.ID, "a", "b"}, UpdatedAt: now.Add(-time.Hour),
		IsGroup: true, GroupName: "Book Club", GroupAvatar: "http://img/club.png",
	})
	require.NoError(t, err)

	l := NewChatList(context.Background(), f.backend, me.ID)
	defer l.Close()
	st := waitLoaded(t, l, 3)
	assert.Equal(t, "http://img/club.png", st.Rows[2].Avatar)

	l.SetQuery("ANN")
	assert.Equal(t, []string{"Annabel"}, titles(l.State().Rows))
	l.SetQuery("b")
	assert.Equal(t, []string{"Annabel", "Ben", "Book Club"}, titles(l.State().Rows))
	l.SetQuery("zzz")
	assert.Empty(t, l.State().Rows)
	assert.Equal(t, 3, l.State().Total)
}

func TestChatListEmpty(t *testing.T) {
	f := newFixture(t)
	l := NewChatList(context.Background(), f.backend, "nobody")
	defer l.Close()

	st := waitLoaded(t, l, 0)
	assert.Zero(t, st.Total)
}

func TestChatListCloseReleasesSubscription(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	topic := docstore.ChatsTopic(me.ID)

	l := NewChatList(context.Background(), f.backend, me.ID)
	waitLoaded(t, l, 0)
	assert.Equal(t, 1, f.store.Subscribers(topic))

	l.Close()
	assert.Equal(t, 0, f.store.Subscribers(topic))
}

func TestChatListConversationLookup(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	f.chat(t, "chat1", time.Now(), me.ID, "a")

	l := NewChatList(context.Background(), f.backend, me.ID)
	defer l.Close()
	waitLoaded(t, l, 1)

	c, ok := l.Conversation("chat1")
	require.True(t, ok)
	assert.Equal(t, []string{me.ID, "a"}, c.Members)
	_, ok = l.Conversation("nope")
	assert.False(t, ok)
}
