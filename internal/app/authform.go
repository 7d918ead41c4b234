package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"minichat/internal/models"
)

type AuthMode int

const (
	ModeSignIn AuthMode = iota
	ModeSignUp
)

func (m AuthMode) String() string {
	if m == ModeSignUp {
		return "sign_up"
	}
	return "sign_in"
}

// ErrNameRequired is returned by a sign-up without a display name.
var ErrNameRequired = errors.New("please enter your name")

const providerErrorPrefix = "auth: "

// PlaceholderAvatar is the generated avatar for a profile without a photo.
func PlaceholderAvatar(uid string) string {
	return "https://i.pravatar.cc/150?u=" + uid
}

// DisplayError is the form-level text for err.
func DisplayError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, providerErrorPrefix); i >= 0 {
		msg = msg[i+len(providerErrorPrefix):]
	}
	return msg
}

// AuthForm is the sign-in / sign-up form.
type AuthForm struct {
	backend Backend

	Mode     AuthMode
	Name     string
	Email    string
	Password string
}

func NewAuthForm(backend Backend) *AuthForm {
	return &AuthForm{backend: backend}
}

// Toggle switches between sign-in and sign-up.
func (f *AuthForm) Toggle() {
	if f.Mode == ModeSignIn {
		f.Mode = ModeSignUp
	} else {
		f.Mode = ModeSignIn
	}
}

// Submit runs the action of the current mode.
func (f *AuthForm) Submit(ctx context.Context) (models.Identity, error) {
	if f.Mode == ModeSignUp {
		return f.signUp(ctx)
	}
	return f.backend.Identity.SignIn(ctx, strings.TrimSpace(f.Email), f.Password)
}

// SignInWithProvider exchanges an SSO token and creates the profile on first use.
func (f *AuthForm) SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error) {
	identity, err := f.backend.Identity.SignInWithProvider(ctx, providerToken)
	if err != nil {
		return models.Identity{}, err
	}

	_, err = f.backend.Docs.GetUser(ctx, identity.UID)
	switch {
	case err == nil:
		return identity, nil
	case !errors.Is(err, models.ErrNotFound):
		return identity, fmt.Errorf("load profile: %w", err)
	}

	avatar := identity.PhotoURL
	if avatar == "" {
		avatar = PlaceholderAvatar(identity.UID)
	}
	name := identity.DisplayName
	if name == "" {
		name = identity.Email
	}
	if err := f.createProfile(ctx, identity, name, avatar); err != nil {
		return identity, err
	}
	return identity, nil
}

func (f *AuthForm) signUp(ctx context.Context) (models.Identity, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return models.Identity{}, ErrNameRequired
	}

	identity, err := f.backend.Identity.CreateAccount(ctx, strings.TrimSpace(f.Email), f.Password)
	if err != nil {
		return models.Identity{}, err
	}
	if err := f.createProfile(ctx, identity, name, PlaceholderAvatar(identity.UID)); err != nil {
		return identity, err
	}
	return identity, nil
}

// createProfile writes the profile for a new identity. A failed write signs
// the identity out again so no session runs without a profile.
func (f *AuthForm) createProfile(ctx context.Context, identity models.Identity, name, avatar string) error {
	err := f.backend.Docs.SetUser(ctx, models.User{
		ID:       identity.UID,
		Name:     name,
		Email:    identity.Email,
		Avatar:   avatar,
		LastSeen: f.backend.now(),
		Online:   true,
	})
	if err == nil {
		return nil
	}
	log.Printf("auth form: create profile failed uid=%s: %v", identity.UID, err)
	if signOutErr := f.backend.Identity.SignOut(ctx); signOutErr != nil {
		log.Printf("auth form: sign out after failed profile write: %v", signOutErr)
	}
	return fmt.Errorf("create profile: %w", err)
}
