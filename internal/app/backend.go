// Package app holds the client-side glue of MiniChat: the session
// controller, the screen router and the view-models behind each screen.
// It talks to the backend only through the capabilities in Backend.
package app

import (
	"context"
	"io"
	"time"

	"minichat/internal/live"
	"minichat/internal/models"
)

// IdentityProvider signs users in and reports auth-state changes.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (models.Identity, error)
	SignIn(ctx context.Context, email, password string) (models.Identity, error)
	SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error)
	SignOut(ctx context.Context) error
	// WatchAuthState yields the current identity (nil when signed out) and every change.
	WatchAuthState(ctx context.Context) *live.Subscription[*models.Identity]
}

// Documents is the document store as seen by a signed-in client.
type Documents interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	SetUser(ctx context.Context, user models.User) error
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context, q models.UserQuery) (models.UserPage, error)
	CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error)
	UpdateChatSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) error
	AddMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error)
	WatchChats(ctx context.Context, userID string) *live.Subscription[[]models.Conversation]
	WatchMessages(ctx context.Context, chatID string) *live.Subscription[[]models.Message]
}

// Uploader stores a media file for a conversation and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, chatID, filename string, body io.Reader) (string, error)
}

// Backend bundles the capabilities every component is constructed with.
type Backend struct {
	Identity IdentityProvider
	Docs     Documents
	Uploads  Uploader
	Now      func() time.Time
}

func (b Backend) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
