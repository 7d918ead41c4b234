package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minichat/internal/models"
)

var signedIn = SessionState{User: &models.User{ID: "u1"}, Ready: true}

func TestSplashWaitsForBothTimerAndAuthCheck(t *testing.T) {
	r := NewRouter()
	r.AuthChanged(SessionState{Ready: true})
	assert.Equal(t, ScreenSplash, r.Current().Screen)
	r.SplashElapsed()
	assert.Equal(t, ScreenLogin, r.Current().Screen)

	r = NewRouter()
	r.SplashElapsed()
	r.AuthChanged(SessionState{})
	assert.Equal(t, ScreenSplash, r.Current().Screen, "unready session keeps the splash")
	r.AuthChanged(signedIn)
	assert.Equal(t, ScreenChatList, r.Current().Screen)
}

func TestRouterTransitions(t *testing.T) {
	r := NewRouter()
	r.SplashElapsed()
	r.AuthChanged(signedIn)

	require.NoError(t, r.Go(ScreenProfile))
	require.NoError(t, r.Go(ScreenNotifications))
	require.NoError(t, r.Back())
	assert.Equal(t, ScreenProfile, r.Current().Screen)
	require.NoError(t, r.Go(ScreenPrivacy))
	require.NoError(t, r.Back())
	require.NoError(t, r.Back())
	assert.Equal(t, ScreenChatList, r.Current().Screen)

	require.NoError(t, r.Go(ScreenNewChat))
	require.NoError(t, r.OpenChat("dm_1"))
	assert.Equal(t, Route{Screen: ScreenChat, Chat: "dm_1"}, r.Current())
	require.NoError(t, r.Back())
	assert.Equal(t, Route{Screen: ScreenChatList}, r.Current())
}

func TestRouterRejectsInvalidTransitions(t *testing.T) {
	r := NewRouter()
	assert.ErrorIs(t, r.Go(ScreenChatList), ErrInvalidTransition, "splash only exits through the gate")
	assert.ErrorIs(t, r.Back(), ErrInvalidTransition)

	r.SplashElapsed()
	r.AuthChanged(SessionState{Ready: true})
	assert.ErrorIs(t, r.Go(ScreenChatList), ErrInvalidTransition, "signed out")

	r.AuthChanged(signedIn)
	require.Equal(t, ScreenChatList, r.Current().Screen)
	assert.ErrorIs(t, r.Go(ScreenNotifications), ErrInvalidTransition)
	assert.ErrorIs(t, r.Go(ScreenLogin), ErrInvalidTransition)
	assert.Equal(t, ScreenChatList, r.Current().Screen)
}

func TestChatWithoutSelectionRedirectsToList(t *testing.T) {
	r := NewRouter()
	r.SplashElapsed()
	r.AuthChanged(signedIn)

	require.NoError(t, r.OpenChat(""))
	assert.Equal(t, Route{Screen: ScreenChatList}, r.Current())
	require.NoError(t, r.Go(ScreenChat))
	assert.Equal(t, Route{Screen: ScreenChatList}, r.Current())
}

func TestSignOutReturnsToLogin(t *testing.T) {
	r := NewRouter()
	r.SplashElapsed()
	r.AuthChanged(signedIn)
	require.NoError(t, r.OpenChat("dm_1"))

	r.AuthChanged(SessionState{Ready: true})
	assert.Equal(t, Route{Screen: ScreenLogin}, r.Current())

	r.AuthChanged(signedIn)
	assert.Equal(t, ScreenChatList, r.Current().Screen)
}

func TestRunDrivesRouterFromSession(t *testing.T) {
	f := newFixture(t)
	s := NewSession(f.backend)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Close()

	r := NewRouter()
	go r.Run(ctx, s, 20*time.Millisecond)

	assert.Eventually(t, func() bool { return r.Current().Screen == ScreenLogin }, time.Second, 5*time.Millisecond)
}
