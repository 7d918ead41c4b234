package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"minichat/internal/live"
)

// DefaultSplash is the minimum time the splash screen stays up.
const DefaultSplash = 2 * time.Second

type Screen int

const (
	ScreenSplash Screen = iota
	ScreenLogin
	ScreenChatList
	ScreenChat
	ScreenProfile
	ScreenNewChat
	ScreenNotifications
	ScreenPrivacy
)

var screenNames = map[Screen]string{
	ScreenSplash:        "splash",
	ScreenLogin:         "login",
	ScreenChatList:      "chat_list",
	ScreenChat:          "chat",
	ScreenProfile:       "profile",
	ScreenNewChat:       "new_chat",
	ScreenNotifications: "notifications",
	ScreenPrivacy:       "privacy",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return fmt.Sprintf("screen(%d)", int(s))
}

// ErrInvalidTransition is returned when a navigation is not allowed from the
// current screen. The route is left unchanged.
var ErrInvalidTransition = errors.New("invalid screen transition")

// Route is the current screen plus the selected conversation, which is only
// set on ScreenChat.
type Route struct {
	Screen Screen
	Chat   string
}

// user-driven navigation; leaving Splash and Login is driven by the session.
var transitions = map[Screen][]Screen{
	ScreenChatList:      {ScreenChat, ScreenProfile, ScreenNewChat},
	ScreenChat:          {ScreenChatList},
	ScreenProfile:       {ScreenChatList, ScreenNotifications, ScreenPrivacy},
	ScreenNewChat:       {ScreenChat, ScreenChatList},
	ScreenNotifications: {ScreenProfile},
	ScreenPrivacy:       {ScreenProfile},
}

var backTargets = map[Screen]Screen{
	ScreenChat:          ScreenChatList,
	ScreenProfile:       ScreenChatList,
	ScreenNewChat:       ScreenChatList,
	ScreenNotifications: ScreenProfile,
	ScreenPrivacy:       ScreenProfile,
}

// Router is the screen state machine.
type Router struct {
	mu          sync.Mutex
	route       Route
	splashDone  bool
	authChecked bool
	signedIn    bool

	value *live.Value[Route]
}

func NewRouter() *Router {
	return &Router{value: live.NewValue(Route{Screen: ScreenSplash})}
}

// Current returns the active route.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

// Watch yields the current route and every change.
func (r *Router) Watch(ctx context.Context) *live.Subscription[Route] {
	return r.value.Watch(ctx)
}

// Go navigates to screen. Going to ScreenChat without a conversation lands on
// the chat list; use OpenChat to select one.
func (r *Router) Go(to Screen) error {
	return r.navigate(Route{Screen: to})
}

// OpenChat navigates to the conversation chatID. An empty id redirects to
// the chat list.
func (r *Router) OpenChat(chatID string) error {
	return r.navigate(Route{Screen: ScreenChat, Chat: chatID})
}

// Back leaves the current screen for its parent.
func (r *Router) Back() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	to, ok := backTargets[r.route.Screen]
	if !ok {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, r.route.Screen)
	}
	r.set(Route{Screen: to})
	return nil
}

// SplashElapsed records that the minimum splash time has passed.
func (r *Router) SplashElapsed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.splashDone = true
	r.settle()
}

// AuthChanged feeds a session state into the router. States that are not
// Ready are ignored.
func (r *Router) AuthChanged(state SessionState) {
	if !state.Ready {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authChecked = true
	r.signedIn = state.SignedIn()
	r.settle()
}

// Run drives the router from the session and the splash timer until ctx ends.
func (r *Router) Run(ctx context.Context, session *Session, minSplash time.Duration) {
	timer := time.NewTimer(minSplash)
	defer timer.Stop()

	sub := session.Watch(ctx)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.SplashElapsed()
		case state, ok := <-sub.C:
			if !ok {
				return
			}
			r.AuthChanged(state)
		}
	}
}

func (r *Router) navigate(to Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.allowed(r.route.Screen, to.Screen) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.route.Screen, to.Screen)
	}
	if to.Screen == ScreenChat && to.Chat == "" {
		to = Route{Screen: ScreenChatList}
	}
	if to.Screen != ScreenChat {
		to.Chat = ""
	}
	r.set(to)
	return nil
}

func (r *Router) allowed(from, to Screen) bool {
	if !r.signedIn {
		return false
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// settle applies the session-driven transitions. Callers hold r.mu.
func (r *Router) settle() {
	switch {
	case r.route.Screen == ScreenSplash:
		if !r.splashDone || !r.authChecked {
			return
		}
		if r.signedIn {
			r.set(Route{Screen: ScreenChatList})
		} else {
			r.set(Route{Screen: ScreenLogin})
		}
	case !r.authChecked:
	case !r.signedIn && r.route.Screen != ScreenLogin:
		r.set(Route{Screen: ScreenLogin})
	case r.signedIn && r.route.Screen == ScreenLogin:
		r.set(Route{Screen: ScreenChatList})
	}
}

func (r *Router) set(route Route) {
	r.route = route
	r.value.Set(route)
}
