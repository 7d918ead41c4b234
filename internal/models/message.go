package models

import (
	"strings"
	"time"
)

// Message is an immutable entry of a conversation.
type Message struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	ChatID    string    `db:"chat_id" json:"chat_id" bson:"chat_id"`
	Text      string    `db:"text" json:"text,omitempty" bson:"text,omitempty"`
	MediaURL  string    `db:"media_url" json:"media_url,omitempty" bson:"media_url,omitempty"`
	SenderID  string    `db:"sender_id" json:"sender_id" bson:"sender_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
}

// Empty reports whether the message carries neither text nor media.
func (m Message) Empty() bool {
	return strings.TrimSpace(m.Text) == "" && m.MediaURL == ""
}

// SnapshotEvent is pushed over live-query websockets.
type SnapshotEvent struct {
	Type          string         `json:"type"`
	Conversations []Conversation `json:"conversations,omitempty"`
	Messages      []Message      `json:"messages,omitempty"`
	Error         string         `json:"error,omitempty"`
}
