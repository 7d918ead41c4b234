package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
)

type chatListView struct {
	vm        *app.ChatList
	state     app.ChatListState
	search    textinput.Model
	searching bool
	cursor    int
}

func newChatListView(ctx context.Context, backend app.Backend, userID string) *chatListView {
	search := textinput.New()
	search.Placeholder = "Search messages or users"
	return &chatListView{
		vm:     app.NewChatList(ctx, backend, userID),
		state:  app.ChatListState{Loading: true},
		search: search,
	}
}

func (m *Model) updateChatList(msg tea.Msg) tea.Cmd {
	v := m.list
	if v == nil {
		return nil
	}
	switch msg := msg.(type) {
	case chatListMsg:
		if msg.seq != m.seq {
			return nil
		}
		v.state = msg.state
		if v.cursor >= len(v.state.Rows) {
			v.cursor = max(len(v.state.Rows)-1, 0)
		}
		return nil

	case tea.KeyMsg:
		if v.searching {
			switch msg.String() {
			case "esc", "enter":
				v.searching = false
				v.search.Blur()
				return nil
			}
			var cmd tea.Cmd
			v.search, cmd = v.search.Update(msg)
			v.vm.SetQuery(v.search.Value())
			return cmd
		}

		switch msg.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.state.Rows)-1 {
				v.cursor++
			}
		case "/":
			v.searching = true
			return v.search.Focus()
		case "enter":
			if v.cursor >= len(v.state.Rows) {
				return nil
			}
			conv, ok := v.vm.Conversation(v.state.Rows[v.cursor].ChatID)
			if !ok {
				return nil
			}
			m.pending = conv
			return m.navigate(func() error { return m.router.OpenChat(conv.ID) })
		case "n":
			return m.navigate(func() error { return m.router.Go(app.ScreenNewChat) })
		case "p":
			return m.navigate(func() error { return m.router.Go(app.ScreenProfile) })
		case "q":
			m.Close()
			return tea.Quit
		}
	}
	return nil
}

// navigate runs a router transition. Route changes come back through the
// route subscription.
func (m *Model) navigate(step func() error) tea.Cmd {
	if err := step(); err != nil {
		m.alert = err.Error()
	}
	return nil
}

func (v *chatListView) view() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Chats"))
	b.WriteString("\n")
	if v.searching || v.search.Value() != "" {
		b.WriteString(v.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case v.state.Loading:
		b.WriteString(mutedStyle.Render("Loading chats..."))
	case v.state.Total == 0:
		b.WriteString(mutedStyle.Render("No chats yet.\nPress n to start a conversation."))
	case len(v.state.Rows) == 0:
		b.WriteString(mutedStyle.Render("No chats match your search."))
	default:
		for i, row := range v.state.Rows {
			line := renderChatRow(row)
			if i == v.cursor {
				b.WriteString(selectedRowStyle.Render(line))
			} else {
				b.WriteString(rowStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter: open • /: search • n: new chat • p: profile • q: quit"))
	return b.String()
}

func renderChatRow(row app.ChatRow) string {
	title := row.Title
	if title == "" {
		title = "..."
	}
	if row.Online {
		title += " " + onlineDot
	}
	preview := row.Preview
	if preview == "" {
		preview = "No messages yet"
	}
	stamp := ""
	if !row.UpdatedAt.IsZero() {
		stamp = row.UpdatedAt.Local().Format("15:04")
	}
	return fmt.Sprintf("%s  %s\n%s", title, mutedStyle.Render(stamp), mutedStyle.Render(truncate(preview, 40)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
