package auth

import (
	"context"

	"minichat/internal/live"
	"minichat/internal/models"
)

// Local is an in-process identity client over Service. It keeps the signed-in
// identity and publishes auth-state changes.
type Local struct {
	svc   *Service
	state *live.Value[*models.Identity]
}

// NewLocal creates a signed-out client.
func NewLocal(svc *Service) *Local {
	return &Local{svc: svc, state: live.NewValue[*models.Identity](nil)}
}

func (l *Local) CreateAccount(ctx context.Context, email, password string) (models.Identity, error) {
	return l.signedIn(l.svc.CreateAccount(ctx, email, password))
}

func (l *Local) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	return l.signedIn(l.svc.SignIn(ctx, email, password))
}

func (l *Local) SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error) {
	return l.signedIn(l.svc.SignInWithProvider(ctx, providerToken))
}

func (l *Local) SignOut(ctx context.Context) error {
	l.state.Set(nil)
	return nil
}

// WatchAuthState yields the current identity (nil when signed out) and every change.
func (l *Local) WatchAuthState(ctx context.Context) *live.Subscription[*models.Identity] {
	return l.state.Watch(ctx)
}

// Current returns the signed-in identity or nil.
func (l *Local) Current() *models.Identity {
	return l.state.Get()
}

func (l *Local) signedIn(identity models.Identity, err error) (models.Identity, error) {
	if err != nil {
		return models.Identity{}, err
	}
	l.state.Set(&identity)
	return identity, nil
}
