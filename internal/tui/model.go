// Package tui is the terminal front end of MiniChat. It renders the screens
// of internal/app and forwards key presses to it.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
	"minichat/internal/live"
	"minichat/internal/models"
)

type (
	routeMsg   app.Route
	sessionMsg app.SessionState

	chatListMsg struct {
		seq   int
		state app.ChatListState
	}
	chatStateMsg struct {
		seq   int
		state app.ChatState
	}
	usersLoadedMsg struct {
		seq int
		err error
	}
	chatStartedMsg struct {
		conv models.Conversation
		err  error
	}
	authResultMsg struct{ err error }
	sentMsg       struct{ err error }
)

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend app.Backend
	session *app.Session
	router  *app.Router
	splash  time.Duration

	width, height int

	route app.Route
	state app.SessionState

	// per-screen resources, released on every route change
	screenCancel context.CancelFunc
	seq          int
	pending      models.Conversation

	login   *loginView
	list    *chatListView
	chat    *chatView
	newChat *newChatView

	alert string
}

// New builds the UI over backend. The splash screen stays up for at least splash.
func New(ctx context.Context, backend app.Backend, splash time.Duration) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		backend: backend,
		session: app.NewSession(backend),
		router:  app.NewRouter(),
		splash:  splash,
		login:   newLoginView(),
	}
}

func (m *Model) Init() tea.Cmd {
	m.session.Start(m.ctx)
	go m.router.Run(m.ctx, m.session, m.splash)

	routes := m.router.Watch(m.ctx)
	states := m.session.Watch(m.ctx)
	return tea.Batch(
		listen(routes, func(r app.Route) tea.Msg { return routeMsg(r) }),
		listen(states, func(s app.SessionState) tea.Msg { return sessionMsg(s) }),
		m.login.focus(),
	)
}

// Close releases every subscription held by the UI.
func (m *Model) Close() {
	m.leaveScreen()
	m.session.Close()
	m.cancel()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.chat != nil {
			m.chat.resize(m.width, m.height)
		}
		return m, nil

	case subscriptionMsg:
		_, cmd := m.Update(msg.msg)
		return m, tea.Batch(cmd, msg.next)

	case routeMsg:
		return m, m.enter(app.Route(msg))

	case sessionMsg:
		m.state = app.SessionState(msg)
		if m.state.User != nil && m.needsSetup() {
			return m, m.enter(m.route)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if m.alert != "" {
			if msg.String() == "enter" || msg.String() == "esc" {
				m.alert = ""
			}
			return m, nil
		}
	}

	switch m.route.Screen {
	case app.ScreenLogin:
		return m, m.updateLogin(msg)
	case app.ScreenChatList:
		return m, m.updateChatList(msg)
	case app.ScreenChat:
		return m, m.updateChat(msg)
	case app.ScreenNewChat:
		return m, m.updateNewChat(msg)
	case app.ScreenProfile, app.ScreenNotifications, app.ScreenPrivacy:
		return m, m.updateProfile(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	var body string
	switch m.route.Screen {
	case app.ScreenSplash:
		body = m.viewSplash()
	case app.ScreenLogin:
		body = m.login.view()
	case app.ScreenChatList, app.ScreenChat, app.ScreenNewChat:
		body = m.viewSignedIn()
	case app.ScreenProfile:
		body = m.viewProfile()
	case app.ScreenNotifications:
		body = viewNotifications()
	case app.ScreenPrivacy:
		body = viewPrivacy()
	}
	if m.alert != "" {
		body += "\n\n" + alertStyle.Render(m.alert+"\n\n"+mutedStyle.Render("enter to dismiss"))
	}
	return body
}

func (m *Model) viewSignedIn() string {
	switch {
	case m.route.Screen == app.ScreenChatList && m.list != nil:
		return m.list.view()
	case m.route.Screen == app.ScreenChat && m.chat != nil:
		return m.chat.view()
	case m.route.Screen == app.ScreenNewChat && m.newChat != nil:
		return m.newChat.view()
	}
	return mutedStyle.Render("Loading...")
}

func (m *Model) viewSplash() string {
	return titleStyle.Render("MiniChat") + "\n" + mutedStyle.Render("Connecting...")
}

// enter tears down the previous screen and sets up route.
func (m *Model) enter(route app.Route) tea.Cmd {
	m.leaveScreen()
	m.route = route
	m.seq++

	ctx, cancel := context.WithCancel(m.ctx)
	m.screenCancel = cancel
	user := m.state.User

	switch route.Screen {
	case app.ScreenLogin:
		m.login = newLoginView()
		return m.login.focus()

	case app.ScreenChatList:
		if user == nil {
			return nil
		}
		m.list = newChatListView(ctx, m.backend, user.ID)
		seq := m.seq
		return listen(m.list.vm.Watch(ctx), func(s app.ChatListState) tea.Msg { return chatListMsg{seq: seq, state: s} })

	case app.ScreenChat:
		if user == nil {
			return nil
		}
		if m.pending.ID != route.Chat {
			return func() tea.Msg {
				_ = m.router.Back()
				return nil
			}
		}
		m.chat = newChatView(ctx, m.backend, *user, m.pending, m.width, m.height)
		seq := m.seq
		return tea.Batch(
			m.chat.input.Focus(),
			listen(m.chat.vm.Watch(ctx), func(s app.ChatState) tea.Msg { return chatStateMsg{seq: seq, state: s} }),
		)

	case app.ScreenNewChat:
		if user == nil {
			return nil
		}
		m.newChat = newNewChatView(m.backend, *user)
		return m.loadUsers()
	}
	return nil
}

// needsSetup reports whether the current screen was entered before the
// session had a user.
func (m *Model) needsSetup() bool {
	switch m.route.Screen {
	case app.ScreenChatList:
		return m.list == nil
	case app.ScreenChat:
		return m.chat == nil
	case app.ScreenNewChat:
		return m.newChat == nil
	}
	return false
}

// leaveScreen cancels the screen context before waiting on its view-models.
func (m *Model) leaveScreen() {
	if m.screenCancel != nil {
		m.screenCancel()
		m.screenCancel = nil
	}
	if m.list != nil {
		m.list.vm.Close()
		m.list = nil
	}
	if m.chat != nil {
		m.chat.vm.Close()
		m.chat = nil
	}
	m.newChat = nil
}

// listen turns the next value of sub into a message. Handlers re-issue it to
// keep receiving.
func listen[T any](sub *live.Subscription[T], wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-sub.C
		if !ok {
			return nil
		}
		return subscriptionMsg{msg: wrap(v), next: listen(sub, wrap)}
	}
}

// subscriptionMsg carries one value and the command that waits for the next.
type subscriptionMsg struct {
	msg  tea.Msg
	next tea.Cmd
}
