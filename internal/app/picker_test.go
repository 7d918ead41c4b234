package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTwiceReturnsSameConversation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	ctx := context.Background()

	first, err := NewPicker(f.backend, alice).Start(ctx, bob.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, first.Members)
	assert.Nil(t, first.LastMessage)
	assert.False(t, first.UpdatedAt.IsZero())

	second, err := NewPicker(f.backend, bob).Start(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	chats, err := f.store.ListChats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestConcurrentStartsCreateOneConversation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			me, other := alice, bob
			if i%2 == 1 {
				me, other = bob, alice
			}
			c, err := NewPicker(f.backend, me).Start(context.Background(), other.ID)
			assert.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	chats, err := f.store.ListChats(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestStartWithSelfFails(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me", "Me")
	_, err := NewPicker(f.backend, me).Start(context.Background(), me.ID)
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestPickerPagesExcludeCurrentUser(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "u000", "Me")
	for i := 1; i <= 40; i++ {
		f.user(t, fmt.Sprintf("u%03d", i), fmt.Sprintf("User %d", i))
	}
	ctx := context.Background()

	p := NewPicker(f.backend, me)
	assert.True(t, p.HasMore())
	require.NoError(t, p.LoadMore(ctx))
	assert.Len(t, p.Users(), PickerPageSize)
	assert.True(t, p.HasMore())

	require.NoError(t, p.LoadMore(ctx))
	users := p.Users()
	assert.Len(t, users, 40)
	assert.False(t, p.HasMore())
	for _, u := range users {
		assert.NotEqual(t, me.ID, u.ID)
	}
	assert.Equal(t, "u001", users[0].ID)
	assert.Equal(t, "u040", users[39].ID)

	require.NoError(t, p.LoadMore(ctx))
	assert.Len(t, p.Users(), 40)
}
