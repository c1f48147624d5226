package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = m.helpFrom
	if m.mode == helpView {
		m.mode = listView
	}
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
chatify - Help
══════════════

CONVERSATION LIST
─────────────────
  ↑/↓, j/k     Navigate conversations
  Enter        Open conversation
  u            Upload a PDF (opens a new conversation)
  d            Delete conversation
  r            Refresh list
  esc          Back to the open conversation
  L            Sign out
  ?            Show this help
  q            Quit

CHAT
────
  Type         Compose a question
  Enter        Send
  ctrl+y       Copy the last answer to the clipboard
  ctrl+r       Reload the conversation from the server
  pgup/pgdn    Scroll
  esc          Back to conversation list

SIGN IN
───────
  tab          Switch field
  ctrl+t       Toggle between sign in and create account
  Enter        Submit

ctrl+c quits from anywhere.

Press any key to return
`

	return helpStyle.Render(help)
}
