package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"minichat/internal/live"
	"minichat/internal/models"
)

// SessionState is what the rest of the client sees of the session. Ready is
// false until the first auth check has completed.
type SessionState struct {
	User  *models.User
	Ready bool
}

// SignedIn reports whether a profile is loaded.
func (s SessionState) SignedIn() bool { return s.User != nil }

// Session owns the signed-in identity and its profile.
type Session struct {
	backend Backend

	// A freshly created account may publish its identity before the sign-up
	// form has written the profile, so a missing profile is re-read a few times.
	ProfileRetries int
	ProfileBackoff time.Duration

	state *live.Value[SessionState]

	mu      sync.Mutex
	cancel  context.CancelFunc
	resolve context.CancelFunc
	gen     uint64
}

func NewSession(backend Backend) *Session {
	return &Session{
		backend:        backend,
		ProfileRetries: 5,
		ProfileBackoff: 200 * time.Millisecond,
		state:          live.NewValue(SessionState{}),
	}
}

// Start follows the identity provider until ctx ends or Close is called.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	sub := s.backend.Identity.WatchAuthState(ctx)
	go func() {
		defer sub.Close()
		for identity := range sub.C {
			s.onIdentity(ctx, identity)
		}
		if err := sub.Err(); err != nil {
			log.Printf("session: auth state subscription ended: %v", err)
			s.publish(s.nextGen(), SessionState{Ready: true})
		}
	}()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state.Get()
}

// Watch yields the current state and every change.
func (s *Session) Watch(ctx context.Context) *live.Subscription[SessionState] {
	return s.state.Watch(ctx)
}

// SignOut marks the user offline and signs out of the identity provider.
// The state clears once the provider reports the change.
func (s *Session) SignOut(ctx context.Context) error {
	if user := s.State().User; user != nil {
		offline := *user
		offline.Online = false
		offline.LastSeen = s.backend.now()
		if err := s.backend.Docs.SetUser(ctx, offline); err != nil {
			log.Printf("session: mark offline failed user_id=%s: %v", user.ID, err)
		}
	}
	return s.backend.Identity.SignOut(ctx)
}

// Close stops following the identity provider.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolve != nil {
		s.resolve()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) onIdentity(ctx context.Context, identity *models.Identity) {
	gen := s.nextGen()
	if identity == nil {
		s.publish(gen, SessionState{Ready: true})
		return
	}

	resolveCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.resolve = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		user, err := s.loadProfile(resolveCtx, identity.UID)
		if resolveCtx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("session: profile unavailable uid=%s, signing out: %v", identity.UID, err)
			if err := s.backend.Identity.SignOut(ctx); err != nil {
				log.Printf("session: forced sign-out failed: %v", err)
			}
			s.publish(gen, SessionState{Ready: true})
			return
		}

		user.Online = true
		user.LastSeen = s.backend.now()
		if err := s.backend.Docs.SetUser(resolveCtx, user); err != nil {
			log.Printf("session: mark online failed user_id=%s: %v", user.ID, err)
		}
		s.publish(gen, SessionState{User: &user, Ready: true})
	}()
}

func (s *Session) loadProfile(ctx context.Context, uid string) (models.User, error) {
	for attempt := 0; ; attempt++ {
		user, err := s.backend.Docs.GetUser(ctx, uid)
		if err == nil || !errors.Is(err, models.ErrNotFound) || attempt >= s.ProfileRetries {
			return user, err
		}
		select {
		case <-ctx.Done():
			return models.User{}, ctx.Err()
		case <-time.After(s.ProfileBackoff):
		}
	}
}

// nextGen invalidates any in-flight profile resolution.
func (s *Session) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolve != nil {
		s.resolve()
		s.resolve = nil
	}
	s.gen++
	return s.gen
}

func (s *Session) publish(gen uint64, state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.state.Set(state)
}
