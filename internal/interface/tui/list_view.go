package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/chatify/internal/core/models"
)

type conversationItem struct {
	summary models.ConversationSummary
	active  bool
}

func (i conversationItem) FilterValue() string {
	return i.summary.Title + " " + i.summary.ID
}

func (i conversationItem) Title() string {
	return i.summary.DisplayTitle()
}

func (i conversationItem) Description() string {
	if i.summary.CreatedAt.IsZero() {
		return i.summary.ID
	}
	return fmt.Sprintf("%s | Created: %s", i.summary.ID, humanize.Time(i.summary.CreatedAt))
}

// Custom delegate to highlight the open conversation
type conversationDelegate struct {
	list.DefaultDelegate
}

func (d conversationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(conversationItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := c.Title()
	desc := c.Description()

	switch {
	case index == m.Index():
		title = selectedItemStyle.Render("▸ " + title)
		desc = selectedItemStyle.Faint(true).Render("  " + desc)
	case c.active:
		title = activeItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createConversationList(summaries []models.ConversationSummary, activeID string, width, height int) list.Model {
	items := make([]list.Item, len(summaries))
	for i, s := range summaries {
		items[i] = conversationItem{summary: s, active: s.ID == activeID}
	}

	delegate := conversationDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, listHeight(height))
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return l
}

// syncList rebuilds the list from the history manager, keeping the cursor
// on the same conversation when it is still there
func (m Model) syncList() Model {
	var selectedID string
	if selected, ok := m.list.SelectedItem().(conversationItem); ok {
		selectedID = selected.summary.ID
	}

	m.summaries = m.ws.History.Summaries()
	m.list = createConversationList(m.summaries, m.ws.Conversation.ActiveID(), m.width, m.height)
	for i, s := range m.summaries {
		if s.ID == selectedID {
			m.list.Select(i)
			break
		}
	}
	return m
}

func (m Model) selectedSummary() (models.ConversationSummary, bool) {
	if selected, ok := m.list.SelectedItem().(conversationItem); ok {
		return selected.summary, true
	}
	return models.ConversationSummary{}, false
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "?":
		return m.showHelp(), nil

	case "enter":
		if s, ok := m.selectedSummary(); ok {
			m.err = nil
			m.status = ""
			m = m.enterChat()
			if s.ID != m.ws.Conversation.ActiveID() {
				m.opening = s.ID
				m.viewport.SetContent(metaStyle.Render("Loading conversation..."))
			}
			return m, selectConversation(m.ws, s.ID)
		}
		return m, nil

	case "esc":
		// Back to the open conversation, if any
		if m.ws.Conversation.ActiveID() != "" {
			return m.enterChat(), nil
		}
		return m, nil

	case "u", "n":
		m.err = nil
		m.status = ""
		m.mode = uploadView
		m.pathInput.Focus()
		return m, textinput.Blink

	case "d", "x":
		if s, ok := m.selectedSummary(); ok {
			m.err = nil
			m.status = ""
			m.pendingDelete = &s
			m.mode = deleteView
		}
		return m, nil

	case "r":
		m.err = nil
		m.status = ""
		return m, refreshHistory(m.ws)

	case "L":
		if err := m.ws.Logout(); err != nil {
			m.err = err
		} else {
			m.err = nil
			m.status = "Signed out"
		}
		m.mode = loginView
		m.login = newLoginForm()
		m.composer.Reset()
		return m.syncList().refreshChat(), nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewList() string {
	help := "↑/k up • ↓/j down • enter open • u upload • d delete • r refresh • L sign out • ? more • q quit"
	header := titleStyle.Render("Conversations")

	if len(m.summaries) == 0 {
		body := "No conversations yet. Press 'u' to upload a PDF."
		if m.ws.History.Loading() {
			body = "Loading conversations..."
		}
		return header + "\n\n" + metaStyle.Render(body) + "\n\n" + m.footer(help)
	}

	return header + "\n" + m.list.View() + "\n" + m.footer(help)
}
