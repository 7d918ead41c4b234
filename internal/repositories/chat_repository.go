package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"minichat/internal/models"
)

var ErrChatNotFound = fmt.Errorf("chat %w", models.ErrNotFound)

// ChatRepository abstracts conversation persistence.
type ChatRepository interface {
	CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error)
	GetChat(ctx context.Context, chatID string) (models.Conversation, error)
	ListChats(ctx context.Context, userID string) ([]models.Conversation, error)
	UpdateSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) (models.Conversation, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

type chatRow struct {
	ID            string         `db:"id"`
	Members       pq.StringArray `db:"members"`
	LastText      sql.NullString `db:"last_text"`
	LastCreatedAt sql.NullTime   `db:"last_created_at"`
	LastSenderID  sql.NullString `db:"last_sender_id"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
	IsGroup       bool           `db:"is_group"`
	GroupName     string         `db:"group_name"`
	GroupAvatar   string         `db:"group_avatar"`
}

const chatColumns = `id, members, last_text, last_created_at, last_sender_id, updated_at, is_group, group_name, group_avatar`

func (r chatRow) toModel() models.Conversation {
	chat := models.Conversation{
		ID:          r.ID,
		Members:     []string(r.Members),
		IsGroup:     r.IsGroup,
		GroupName:   r.GroupName,
		GroupAvatar: r.GroupAvatar,
	}
	if r.UpdatedAt.Valid {
		chat.UpdatedAt = r.UpdatedAt.Time
	}
	if r.LastCreatedAt.Valid {
		chat.LastMessage = &models.LastMessage{
			Text:      r.LastText.String,
			CreatedAt: r.LastCreatedAt.Time,
			SenderID:  r.LastSenderID.String,
		}
	}
	return chat
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// CreateChatIfAbsent inserts the conversation unless one with the same id exists.
// The stored document is returned either way.
func (r *ChatRepo) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO chats (id, members, updated_at, is_group, group_name, group_avatar)
        VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		chat.ID, pq.StringArray(chat.Members), nullTime(chat.UpdatedAt), chat.IsGroup, chat.GroupName, chat.GroupAvatar)
	if err != nil {
		return models.Conversation{}, false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Conversation{}, false, err
	}

	stored, err := r.GetChat(ctx, chat.ID)
	if err != nil {
		return models.Conversation{}, false, err
	}
	return stored, count > 0, nil
}

// GetChat fetches a conversation by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	var row chatRow
	err := r.db.GetContext(ctx, &row, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrChatNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return row.toModel(), nil
}

// ListChats returns the conversations whose members contain userID.
func (r *ChatRepo) ListChats(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []chatRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+chatColumns+` FROM chats WHERE $1 = ANY(members)`, userID); err != nil {
		return nil, err
	}
	chats := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		chats = append(chats, row.toModel())
	}
	return chats, nil
}

// UpdateSummary overwrites the last-message summary and updated-at.
func (r *ChatRepo) UpdateSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) (models.Conversation, error) {
	var row chatRow
	err := r.db.GetContext(ctx, &row, `UPDATE chats SET last_text=$2, last_created_at=$3, last_sender_id=$4, updated_at=$5
        WHERE id=$1 RETURNING `+chatColumns,
		chatID, last.Text, last.CreatedAt, last.SenderID, updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrChatNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return row.toModel(), nil
}

// Postgres bundles the sqlx repositories sharing one connection pool.
type Postgres struct {
	*UserRepo
	*AccountRepo
	*ChatRepo
	*MessageRepo
}

// NewPostgres builds every Postgres repository over db.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{
		UserRepo:    NewUserRepo(db),
		AccountRepo: NewAccountRepo(db),
		ChatRepo:    NewChatRepo(db),
		MessageRepo: NewMessageRepo(db),
	}
}
