package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// Conversation is a thread between its members. Membership never changes after creation.
type Conversation struct {
	ID          string       `json:"id" bson:"_id"`
	Members     []string     `json:"members" bson:"members"`
	LastMessage *LastMessage `json:"last_message,omitempty" bson:"last_message,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
	IsGroup     bool         `json:"is_group,omitempty" bson:"is_group,omitempty"`
	GroupName   string       `json:"group_name,omitempty" bson:"group_name,omitempty"`
	GroupAvatar string       `json:"group_avatar,omitempty" bson:"group_avatar,omitempty"`
}

// ConversationID derives the id of the one-to-one conversation between a and
// b. It does not depend on argument order.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	sum := sha256.Sum256([]byte(pair[0] + "\x00" + pair[1]))
	return "dm_" + hex.EncodeToString(sum[:16])
}

// LastMessage is the summary of the newest message kept on the conversation document.
type LastMessage struct {
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	SenderID  string    `json:"sender_id" bson:"sender_id"`
}

// HasMember reports whether userID belongs to the conversation.
func (c Conversation) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherMember returns the first member that is not userID.
func (c Conversation) OtherMember(userID string) (string, bool) {
	for _, id := range c.Members {
		if id != userID {
			return id, true
		}
	}
	return "", false
}

// ChatSummaryUpdate is the body of a summary write.
type ChatSummaryUpdate struct {
	LastMessage LastMessage `json:"last_message"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
