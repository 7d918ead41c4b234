package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"minichat/internal/models"
)

var ErrUserNotFound = fmt.Errorf("user %w", models.ErrNotFound)

// UserRepository abstracts profile persistence.
type UserRepository interface {
	UpsertUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID string) (models.User, error)
	BulkUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context, q models.UserQuery) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// UpsertUser writes the whole profile document.
func (r *UserRepo) UpsertUser(ctx context.Context, user models.User) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO users (id, name, avatar, email, last_seen, online)
        VALUES (:id, :name, :avatar, :email, :last_seen, :online)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, avatar=EXCLUDED.avatar, email=EXCLUDED.email,
        last_seen=EXCLUDED.last_seen, online=EXCLUDED.online`, user)
	return err
}

// GetUser fetches a profile by id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, name, avatar, email, last_seen, online FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches the profiles that exist among ids.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.SelectContext(ctx, &users, `SELECT id, name, avatar, email, last_seen, online FROM users WHERE id = ANY($1)`, pq.StringArray(ids))
	return users, err
}

// ListUsers returns one page of users ordered by id.
func (r *UserRepo) ListUsers(ctx context.Context, q models.UserQuery) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, `SELECT id, name, avatar, email, last_seen, online FROM users
        WHERE id <> $1 AND id > $2 ORDER BY id ASC LIMIT $3`, q.ExcludeID, q.After, q.Limit)
	return users, err
}
