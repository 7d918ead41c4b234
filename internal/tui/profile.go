package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
)

type signOutMsg struct{ err error }

func (m *Model) updateProfile(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case signOutMsg:
		if msg.err != nil {
			m.alert = app.DisplayError(msg.err)
		}
		return nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m.navigate(m.router.Back)
		}
		if m.route.Screen != app.ScreenProfile {
			return nil
		}
		switch msg.String() {
		case "n":
			return m.navigate(func() error { return m.router.Go(app.ScreenNotifications) })
		case "v":
			return m.navigate(func() error { return m.router.Go(app.ScreenPrivacy) })
		case "o":
			session, ctx := m.session, m.ctx
			return func() tea.Msg { return signOutMsg{err: session.SignOut(ctx)} }
		}
	}
	return nil
}

func (m *Model) viewProfile() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Profile"))
	b.WriteString("\n\n")
	if u := m.state.User; u != nil {
		b.WriteString(titleStyle.Render(u.Name))
		b.WriteString("\n")
		b.WriteString(u.Email + "\n")
		b.WriteString(mutedStyle.Render(u.Avatar) + "\n")
		if u.Online {
			b.WriteString(onlineDot + " online\n")
		}
	}
	b.WriteString("\n")
	b.WriteString("n  Notifications\n")
	b.WriteString("v  Privacy\n")
	b.WriteString(errorStyle.Render("o  Sign out") + "\n\n")
	b.WriteString(footerStyle.Render("esc: back"))
	return b.String()
}

func viewNotifications() string {
	return headerStyle.Render("Notifications") + "\n\n" +
		"Message notifications are shown while MiniChat is open.\n" +
		mutedStyle.Render("Push notifications are not available.") + "\n\n" +
		footerStyle.Render("esc: back")
}

func viewPrivacy() string {
	return headerStyle.Render("Privacy") + "\n\n" +
		"Your name, email and avatar are visible to every MiniChat user.\n" +
		"Messages are visible to the members of each conversation.\n\n" +
		footerStyle.Render("esc: back")
}
