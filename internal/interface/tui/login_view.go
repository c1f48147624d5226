package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var errMissingCredentials = errors.New("username and password are required")

type loginForm struct {
	username textinput.Model
	password textinput.Model
	focus    int
	signup   bool
}

func newLoginForm() loginForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 128
	username.Width = 32
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 32

	return loginForm{username: username, password: password}
}

func (f loginForm) setFocus(i int) loginForm {
	f.focus = i
	if i == 0 {
		f.username.Focus()
		f.password.Blur()
	} else {
		f.password.Focus()
		f.username.Blur()
	}
	return f
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.login = m.login.setFocus(1 - m.login.focus)
		return m, nil

	case "ctrl+t":
		m.login.signup = !m.login.signup
		m.err = nil
		return m, nil

	case "esc":
		return m, tea.Quit

	case "enter":
		if m.login.focus == 0 {
			m.login = m.login.setFocus(1)
			return m, nil
		}
		username := strings.TrimSpace(m.login.username.Value())
		password := m.login.password.Value()
		if username == "" || password == "" {
			m.err = errMissingCredentials
			return m, nil
		}
		m.err = nil
		m.status = ""
		if m.login.signup {
			m.busy = "Creating account..."
		} else {
			m.busy = "Signing in..."
		}
		return m, submitLogin(m.ws, username, password, m.login.signup)
	}

	var cmd tea.Cmd
	if m.login.focus == 0 {
		m.login.username, cmd = m.login.username.Update(msg)
	} else {
		m.login.password, cmd = m.login.password.Update(msg)
	}
	return m, cmd
}

func (m Model) viewLogin() string {
	heading := "Sign in"
	toggle := "ctrl+t create an account"
	if m.login.signup {
		heading = "Create an account"
		toggle = "ctrl+t sign in instead"
	}

	label := func(text string, focused bool) string {
		if focused {
			return focusedLabelStyle.Render(text)
		}
		return metaStyle.Render(text)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("chatify: "+heading),
		"",
		label("Username", m.login.focus == 0),
		m.login.username.View(),
		"",
		label("Password", m.login.focus == 1),
		m.login.password.View(),
	)

	return formBoxStyle.Render(form) + "\n\n" +
		m.footer("tab switch field • enter submit • "+toggle+" • esc quit")
}
