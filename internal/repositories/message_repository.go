package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"minichat/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message. ID and CreatedAt are expected to be set.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, chat_id, text, media_url, sender_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, chat_id, text, media_url, sender_id, created_at`,
		msg.ID, msg.ChatID, msg.Text, msg.MediaURL, msg.SenderID, msg.CreatedAt).StructScan(&stored)
	return stored, err
}

// ListMessages returns a conversation's messages ordered by creation time.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, chat_id, text, media_url, sender_id, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC`, chatID)
	return msgs, err
}
