// Package auth is the identity provider: password and single-sign-on
// accounts, session tokens and an in-process client.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"minichat/internal/models"
	"minichat/internal/observability"
	"minichat/internal/repositories"
)

const (
	ProviderPassword = "password"
	ProviderSSO      = "sso"

	minPasswordLength = 6
)

// Every message carries the "auth: " vendor prefix; clients strip it for display.
var (
	ErrInvalidEmail         = errors.New("auth: invalid email")
	ErrWeakPassword         = errors.New("auth: weak password, use at least 6 characters")
	ErrEmailInUse           = errors.New("auth: email already in use")
	ErrInvalidCredentials   = errors.New("auth: invalid credentials")
	ErrInvalidToken         = errors.New("auth: invalid token")
	ErrInvalidProviderToken = errors.New("auth: invalid provider token")
	ErrProviderDisabled     = errors.New("auth: single sign-on is not configured")
)

// Service implements the identity provider operations.
type Service struct {
	accounts repositories.AccountRepository
	sessions *JWTManager
	sso      *JWTManager
	now      func() time.Time
}

// NewService builds the identity provider. sso may be nil to disable single sign-on.
func NewService(accounts repositories.AccountRepository, sessions, sso *JWTManager) *Service {
	return &Service{accounts: accounts, sessions: sessions, sso: sso, now: time.Now}
}

// CreateAccount registers an email/password account and signs it in.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (models.Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		observability.IncAuthAttempt("sign_up", "invalid")
		return models.Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		observability.IncAuthAttempt("sign_up", "invalid")
		return models.Identity{}, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.Identity{}, err
	}
	account := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderPassword,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			observability.IncAuthAttempt("sign_up", "conflict")
			return models.Identity{}, ErrEmailInUse
		}
		return models.Identity{}, err
	}

	observability.IncAuthAttempt("sign_up", "ok")
	return s.identity(account)
}

// SignIn checks email/password credentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, ProviderPassword, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			observability.IncAuthAttempt("sign_in", "denied")
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, err
	}
	if err := CheckPassword(account.PasswordHash, password); err != nil {
		observability.IncAuthAttempt("sign_in", "denied")
		return models.Identity{}, ErrInvalidCredentials
	}

	observability.IncAuthAttempt("sign_in", "ok")
	return s.identity(account)
}

// SignInWithProvider exchanges an SSO identity token for a session, creating
// the account on first use.
func (s *Service) SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error) {
	if s.sso == nil {
		return models.Identity{}, ErrProviderDisabled
	}
	claims, err := s.sso.VerifyProviderToken(providerToken)
	if err != nil {
		observability.IncAuthAttempt("sign_in_sso", "denied")
		return models.Identity{}, ErrInvalidProviderToken
	}

	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("sso:"+claims.Subject)).String()
	account, err := s.accounts.GetAccount(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		account = models.Account{
			ID:          id,
			Email:       normalizeEmail(claims.Email),
			Provider:    ProviderSSO,
			DisplayName: claims.Name,
			PhotoURL:    claims.Picture,
			CreatedAt:   s.now(),
		}
		err = s.accounts.CreateAccount(ctx, account)
		if errors.Is(err, repositories.ErrEmailTaken) {
			account, err = s.accounts.GetAccount(ctx, id)
		}
	}
	if err != nil {
		return models.Identity{}, err
	}

	observability.IncAuthAttempt("sign_in_sso", "ok")
	return s.identity(account)
}

// Verify validates a session token and returns the user id it was issued to.
func (s *Service) Verify(token string) (string, error) {
	claims, err := s.sessions.VerifyToken(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *Service) identity(account models.Account) (models.Identity, error) {
	token, _, err := s.sessions.GenerateToken(account.ID, account.Email)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{
		UID:         account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		PhotoURL:    account.PhotoURL,
		Provider:    account.Provider,
		Token:       token,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
