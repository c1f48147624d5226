package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pendingDelete == nil {
		m.mode = listView
		return m, nil
	}

	switch msg.String() {
	case "y", "Y", "enter":
		target := *m.pendingDelete
		m.busy = "Deleting " + target.DisplayTitle() + "..."
		return m, deleteConversation(m.ws, target.ID, target.DisplayTitle())

	case "n", "N", "esc", "q":
		m.pendingDelete = nil
		m.mode = listView
		return m, nil
	}

	return m, nil
}

func (m Model) viewDelete() string {
	if m.pendingDelete == nil {
		return ""
	}
	body := titleStyle.Render("Delete conversation?") + "\n\n" +
		fmt.Sprintf("%s\n%s", m.pendingDelete.DisplayTitle(), metaStyle.Render(m.pendingDelete.ID)) + "\n\n" +
		errorStyle.Render("This cannot be undone.")

	return formBoxStyle.Render(body) + "\n\n" + m.footer("y delete • n cancel")
}
