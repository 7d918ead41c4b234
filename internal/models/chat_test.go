package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDIsSymmetric(t *testing.T) {
	a := ConversationID("alice", "bob")
	assert.Equal(t, a, ConversationID("bob", "alice"))
	assert.NotEqual(t, a, ConversationID("alice", "carol"))
	assert.Regexp(t, `^dm_[0-9a-f]{32}$`, a)
}

func TestOtherMember(t *testing.T) {
	c := Conversation{Members: []string{"a", "b"}}
	other, ok := c.OtherMember("a")
	assert.True(t, ok)
	assert.Equal(t, "b", other)
	assert.True(t, c.HasMember("b"))
	assert.False(t, c.HasMember("c"))
}
