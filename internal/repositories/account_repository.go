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

var (
	ErrAccountNotFound = fmt.Errorf("account %w", models.ErrNotFound)
	ErrEmailTaken      = errors.New("email already in use")
)

// AccountRepository stores identity-provider credentials.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, id string) (models.Account, error)
	GetAccountByEmail(ctx context.Context, provider, email string) (models.Account, error)
}

// AccountRepo is a sqlx implementation of AccountRepository.
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo constructs an AccountRepo.
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// CreateAccount inserts an account; a duplicate id or (provider, email) yields ErrEmailTaken.
func (r *AccountRepo) CreateAccount(ctx context.Context, account models.Account) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO accounts (id, email, password_hash, provider, display_name, photo_url, created_at)
        VALUES (:id, :email, :password_hash, :provider, :display_name, :photo_url, :created_at)`, account)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

// GetAccount fetches an account by id.
func (r *AccountRepo) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT id, email, password_hash, provider, display_name, photo_url, created_at FROM accounts WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// GetAccountByEmail fetches an account by provider and email.
func (r *AccountRepo) GetAccountByEmail(ctx context.Context, provider, email string) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT id, email, password_hash, provider, display_name, photo_url, created_at
        FROM accounts WHERE provider=$1 AND email=$2`, provider, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}
