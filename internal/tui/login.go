package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calculab/calcu/pkg/auth"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

// authDoneMsg carries the outcome of a sign-in or sign-up attempt. The
// session transition itself arrives separately through the manager's
// subscription.
type authDoneMsg struct {
	signUp bool
	err    error
}

type signedOutMsg struct {
	err error
}

type loginModel struct {
	sessions  *auth.Manager
	fields    [numLoginFields]string
	focus     loginField
	statusMsg string
	errMsg    string
	busy      bool
	width     int
	height    int
}

func newLoginModel(sessions *auth.Manager) loginModel {
	return loginModel{sessions: sessions}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case authDoneMsg:
		m.busy = false
		if msg.err != nil {
			// The provider's own message, verbatim; anything else gets a
			// generic line rather than an internal error chain.
			var perr *auth.ProviderError
			if errors.As(msg.err, &perr) {
				m.errMsg = perr.Message
			} else {
				m.errMsg = "Something went wrong. Please try again."
			}
			return m, nil
		}
		if msg.signUp {
			m.statusMsg = "Check your email for the confirmation link!"
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		m.errMsg = ""
		m.statusMsg = ""
		switch msg.String() {
		case "tab", "down":
			m.focus = (m.focus + 1) % numLoginFields
		case "shift+tab", "up":
			m.focus = (m.focus - 1 + numLoginFields) % numLoginFields
		case "enter":
			if m.focus == fieldEmail {
				m.focus = fieldPassword
				return m, nil
			}
			return m.submit(false)
		case "ctrl+n":
			return m.submit(true)
		default:
			f := &m.fields[m.focus]
			*f = editRune(*f, msg.String())
		}
	}
	return m, nil
}

func (m loginModel) submit(signUp bool) (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]
	if email == "" || password == "" {
		m.errMsg = "email and password are required"
		return m, nil
	}

	m.busy = true
	sessions := m.sessions
	return m, func() tea.Msg {
		var err error
		if signUp {
			err = sessions.SignUp(context.Background(), email, password)
		} else {
			err = sessions.SignIn(context.Background(), email, password)
		}
		return authDoneMsg{signUp: signUp, err: err}
	}
}

// signOutCmd revokes the current session. The nil-session notification
// flows back through the manager's subscription.
func (m loginModel) signOutCmd() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		return signedOutMsg{err: sessions.SignOut(context.Background())}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + selectedStyle.Render("Login or Sign Up") + "\n\n")
	b.WriteString(renderField("email   ", m.fields[fieldEmail], m.focus == fieldEmail, false) + "\n")
	b.WriteString(renderField("password", m.fields[fieldPassword], m.focus == fieldPassword, true) + "\n\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("signing in...") + "\n")
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n")
	case m.statusMsg != "":
		b.WriteString("  " + okStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}
