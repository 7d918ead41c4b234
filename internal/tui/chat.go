package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
	"minichat/internal/models"
)

const imageCommand = "/image "

type chatView struct {
	vm      *app.Chat
	user    models.User
	state   app.ChatState
	input   textinput.Model
	vp      viewport.Model
	sending bool
	err     string
}

func newChatView(ctx context.Context, backend app.Backend, user models.User, conv models.Conversation, width, height int) *chatView {
	input := textinput.New()
	input.Placeholder = "Type a message... (/image <path> to attach)"
	input.CharLimit = 2000

	v := &chatView{
		vm:    app.OpenChat(ctx, backend, user, conv),
		user:  user,
		input: input,
		vp:    viewport.New(80, 20),
		state: app.ChatState{ScrollTo: -1, Loading: true},
	}
	v.resize(width, height)
	return v
}

func (v *chatView) resize(width, height int) {
	if width > 0 {
		v.vp.Width = width
		v.input.Width = width - 4
	}
	if height > 8 {
		v.vp.Height = height - 7
	}
	v.render()
}

func (m *Model) updateChat(msg tea.Msg) tea.Cmd {
	v := m.chat
	if v == nil {
		return nil
	}
	switch msg := msg.(type) {
	case chatStateMsg:
		if msg.seq != m.seq {
			return nil
		}
		v.state = msg.state
		v.render()
		return nil

	case sentMsg:
		v.sending = false
		var uploadErr *app.UploadError
		switch {
		case errors.As(msg.err, &uploadErr):
			m.alert = "Upload failed: " + uploadErr.Err.Error()
		case msg.err != nil:
			v.err = app.DisplayError(msg.err)
		}
		return nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m.navigate(m.router.Back)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			v.vp, cmd = v.vp.Update(msg)
			return cmd
		case "enter":
			if v.sending {
				return nil
			}
			text := v.input.Value()
			v.input.SetValue("")
			v.err = ""
			v.sending = true
			return m.send(text)
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

// send posts text, or uploads a file when text is an /image command.
func (m *Model) send(text string) tea.Cmd {
	vm := m.chat.vm
	ctx := m.ctx
	if strings.HasPrefix(text, imageCommand) {
		path := strings.TrimSpace(strings.TrimPrefix(text, imageCommand))
		return func() tea.Msg {
			f, err := os.Open(path)
			if err != nil {
				return sentMsg{err: &app.UploadError{Filename: path, Err: err}}
			}
			defer f.Close()
			_, err = vm.SendMedia(ctx, filepath.Base(path), f)
			return sentMsg{err: err}
		}
	}
	return func() tea.Msg {
		_, err := vm.Send(ctx, text, "")
		return sentMsg{err: err}
	}
}

func (v *chatView) render() {
	var b strings.Builder
	if v.state.Loading && len(v.state.Messages) == 0 {
		b.WriteString(mutedStyle.Render("Loading messages..."))
	}
	for _, msg := range v.state.Messages {
		b.WriteString(renderMessage(msg, msg.SenderID == v.user.ID))
		b.WriteString("\n")
	}
	v.vp.SetContent(b.String())
	if v.state.ScrollTo >= 0 {
		v.vp.GotoBottom()
	}
}

func renderMessage(msg models.Message, own bool) string {
	body := msg.Text
	if msg.MediaURL != "" {
		media := app.MediaPlaceholder + " " + msg.MediaURL
		if body == "" {
			body = media
		} else {
			body += "\n" + media
		}
	}
	stamp := mutedStyle.Render(msg.CreatedAt.Local().Format("15:04"))
	if own {
		return ownMessageStyle.Render("you: "+body) + " " + stamp
	}
	return otherMessageStyle.Render(body) + " " + stamp
}

func (v *chatView) view() string {
	var b strings.Builder
	title := v.vm.Title()
	if p := v.state.Partner; p != nil && p.Online {
		title += " " + onlineDot
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(v.vp.View())
	b.WriteString("\n")
	b.WriteString(v.input.View())
	b.WriteString("\n")
	if v.sending {
		b.WriteString(mutedStyle.Render("Sending..."))
	} else if v.err != "" {
		b.WriteString(errorStyle.Render(v.err))
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter: send • pgup/pgdown: scroll • esc: back"))
	return b.String()
}
