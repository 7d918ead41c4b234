package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

type loginView struct {
	mode    app.AuthMode
	sso     bool
	inputs  []textinput.Model
	token   textinput.Model
	focused int
	loading bool
	err     string
}

func newLoginView() *loginView {
	name := textinput.New()
	name.Placeholder = "Your Name"
	name.CharLimit = 64

	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	token := textinput.New()
	token.Placeholder = "Provider token"

	return &loginView{
		inputs:  []textinput.Model{name, email, password},
		token:   token,
		focused: fieldEmail,
	}
}

// fields lists the inputs visible in the current mode.
func (v *loginView) fields() []int {
	if v.mode == app.ModeSignUp {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (v *loginView) focus() tea.Cmd {
	for i := range v.inputs {
		v.inputs[i].Blur()
	}
	v.token.Blur()
	if v.sso {
		return v.token.Focus()
	}
	return v.inputs[v.focused].Focus()
}

func (v *loginView) cycle() tea.Cmd {
	fields := v.fields()
	next := fields[0]
	for i, f := range fields {
		if f == v.focused && i+1 < len(fields) {
			next = fields[i+1]
		}
	}
	v.focused = next
	return v.focus()
}

func (m *Model) updateLogin(msg tea.Msg) tea.Cmd {
	v := m.login
	switch msg := msg.(type) {
	case authResultMsg:
		v.loading = false
		v.err = app.DisplayError(msg.err)
		return nil

	case tea.KeyMsg:
		if v.loading {
			return nil
		}
		switch msg.String() {
		case "tab", "down":
			if !v.sso {
				return v.cycle()
			}
		case "ctrl+t":
			v.sso = false
			v.err = ""
			if v.mode == app.ModeSignIn {
				v.mode = app.ModeSignUp
				v.focused = fieldName
			} else {
				v.mode = app.ModeSignIn
				v.focused = fieldEmail
			}
			return v.focus()
		case "ctrl+s":
			v.sso = !v.sso
			v.err = ""
			return v.focus()
		case "enter":
			v.loading = true
			v.err = ""
			return m.submitLogin()
		}
	}

	var cmd tea.Cmd
	if v.sso {
		v.token, cmd = v.token.Update(msg)
	} else {
		v.inputs[v.focused], cmd = v.inputs[v.focused].Update(msg)
	}
	return cmd
}

func (m *Model) submitLogin() tea.Cmd {
	v := m.login
	form := app.NewAuthForm(m.backend)
	form.Mode = v.mode
	form.Name = v.inputs[fieldName].Value()
	form.Email = v.inputs[fieldEmail].Value()
	form.Password = v.inputs[fieldPassword].Value()
	token := strings.TrimSpace(v.token.Value())
	sso := v.sso
	ctx := m.ctx

	return func() tea.Msg {
		var err error
		if sso {
			_, err = form.SignInWithProvider(ctx, token)
		} else {
			_, err = form.Submit(ctx)
		}
		return authResultMsg{err: err}
	}
}

func (v *loginView) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to MiniChat"))
	b.WriteString("\n")

	switch {
	case v.sso:
		b.WriteString(mutedStyle.Render("Sign in with your single sign-on provider"))
		b.WriteString("\n\n")
		b.WriteString(v.token.View())
	case v.mode == app.ModeSignUp:
		b.WriteString(mutedStyle.Render("Create an account to start chatting"))
		b.WriteString("\n\n")
	default:
		b.WriteString(mutedStyle.Render("Sign in to your account"))
		b.WriteString("\n\n")
	}
	if !v.sso {
		for _, f := range v.fields() {
			b.WriteString(v.inputs[f].View())
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if v.loading {
		b.WriteString(mutedStyle.Render("Please wait..."))
	} else if v.err != "" {
		b.WriteString(errorStyle.Render(v.err))
	}
	b.WriteString("\n\n")

	toggle := "ctrl+t: create an account"
	if v.mode == app.ModeSignUp {
		toggle = "ctrl+t: I already have an account"
	}
	b.WriteString(footerStyle.Render("enter: submit • tab: next field • " + toggle + " • ctrl+s: single sign-on • ctrl+c: quit"))
	return b.String()
}
