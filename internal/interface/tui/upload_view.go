package tui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func newPathInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "~/Documents/report.pdf"
	ti.Prompt = "File: "
	ti.CharLimit = 1024
	ti.Width = 60
	return ti
}

// expandPath resolves a leading ~ and surrounding quotes left by drag and drop
func expandPath(path string) string {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pathInput.Reset()
		m.pathInput.Blur()
		m.err = nil
		m.mode = listView
		return m, nil

	case "enter":
		path := expandPath(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		m.err = nil
		m.status = ""
		m.busy = "Uploading " + filepath.Base(path) + "..."
		return m, uploadFile(m.ws, path)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) viewUpload() string {
	body := titleStyle.Render("Upload a PDF") + "\n\n" +
		metaStyle.Render("Uploading a file you already sent reopens its conversation.") + "\n\n" +
		m.pathInput.View()

	return formBoxStyle.Render(body) + "\n\n" + m.footer("enter upload • esc cancel")
}
