package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
	"minichat/internal/models"
)

type newChatView struct {
	picker   *app.Picker
	users    []models.User
	cursor   int
	loading  bool
	starting bool
	err      string
}

func newNewChatView(backend app.Backend, user models.User) *newChatView {
	return &newChatView{picker: app.NewPicker(backend, user), loading: true}
}

func (m *Model) loadUsers() tea.Cmd {
	v := m.newChat
	v.loading = true
	picker, ctx, seq := v.picker, m.ctx, m.seq
	return func() tea.Msg {
		return usersLoadedMsg{seq: seq, err: picker.LoadMore(ctx)}
	}
}

func (m *Model) updateNewChat(msg tea.Msg) tea.Cmd {
	v := m.newChat
	if v == nil {
		return nil
	}
	switch msg := msg.(type) {
	case usersLoadedMsg:
		if msg.seq != m.seq {
			return nil
		}
		v.loading = false
		v.users = v.picker.Users()
		if msg.err != nil {
			v.err = app.DisplayError(msg.err)
		}
		return nil

	case chatStartedMsg:
		v.starting = false
		if msg.err != nil {
			v.err = app.DisplayError(msg.err)
			return nil
		}
		m.pending = msg.conv
		return m.navigate(func() error { return m.router.OpenChat(msg.conv.ID) })

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m.navigate(m.router.Back)
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.users)-1 {
				v.cursor++
			}
			if v.cursor == len(v.users)-1 && v.picker.HasMore() && !v.loading {
				return m.loadUsers()
			}
		case "enter":
			if v.starting || v.cursor >= len(v.users) {
				return nil
			}
			v.starting = true
			v.err = ""
			picker, ctx, target := v.picker, m.ctx, v.users[v.cursor].ID
			return func() tea.Msg {
				conv, err := picker.Start(ctx, target)
				return chatStartedMsg{conv: conv, err: err}
			}
		}
	}
	return nil
}

func (v *newChatView) view() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("New Chat"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Select a contact"))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.users) == 0:
		b.WriteString(mutedStyle.Render("Loading contacts..."))
	case len(v.users) == 0:
		b.WriteString(mutedStyle.Render("No new contacts available."))
	default:
		for i, u := range v.users {
			line := u.Name
			if u.Online {
				line += " " + onlineDot
			}
			line += "  " + mutedStyle.Render(u.Email)
			if i == v.cursor {
				b.WriteString(selectedRowStyle.Render(line))
			} else {
				b.WriteString(rowStyle.Render(line))
			}
			b.WriteString("\n")
		}
		if v.loading {
			b.WriteString(mutedStyle.Render("Loading more..."))
			b.WriteString("\n")
		}
	}

	if v.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(v.err))
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter: start chat • esc: back"))
	return b.String()
}
