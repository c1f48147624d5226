package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/neilberkman/chatify/internal/core/conversation"
	"github.com/neilberkman/chatify/internal/core/models"
)

var errNoAnswer = errors.New("no answer to copy yet")

// markdown caches a glamour renderer for the current wrap width
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown() *markdown {
	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}
	return &markdown{style: style}
}

func (md *markdown) render(text string, width int) string {
	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return wordwrap.String(text, width)
		}
		md.renderer = r
		md.width = width
	}

	out, err := md.renderer.Render(text)
	if err != nil {
		return wordwrap.String(text, width)
	}
	return strings.Trim(out, "\n")
}

func newComposer() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the document..."
	ti.Prompt = "❯ "
	ti.CharLimit = 4000
	ti.Width = 76
	return ti
}

func createViewport(width, height int) viewport.Model {
	return viewport.New(width, chatHeight(height))
}

func (m Model) enterChat() Model {
	m.mode = chatView
	m.composer.Focus()
	return m.refreshChat()
}

// refreshChat re-renders the active conversation into the viewport
func (m Model) refreshChat() Model {
	if m.opening != "" {
		return m
	}
	m.viewport.SetContent(m.renderConversation(m.ws.Conversation.Snapshot()))
	return m
}

func (m Model) renderConversation(snap conversation.Snapshot) string {
	wrapWidth := m.width - 4
	if wrapWidth > 100 {
		wrapWidth = 100
	}
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	switch {
	case snap.ActiveID == "":
		return metaStyle.Render("No conversation open. Press esc to pick one.")
	case snap.State == conversation.StateLoading:
		return metaStyle.Render("Loading conversation...")
	case len(snap.Messages) == 0:
		return metaStyle.Render("No messages yet. Ask something about the document.")
	}

	var b strings.Builder
	for _, msg := range snap.Messages {
		label := assistantStyle.Render("Assistant")
		if msg.IsUser() {
			label = userStyle.Render("You")
		}
		switch msg.Status {
		case models.StatusPending:
			label += " " + pendingStyle.Render("(sending)")
		case models.StatusFailed:
			label += " " + failedStyle.Render("(failed)")
		}
		b.WriteString(label + "\n")

		switch {
		case msg.Status == models.StatusFailed && !msg.IsUser():
			b.WriteString(failedStyle.Render(wordwrap.String(msg.Text, wrapWidth)))
		case msg.IsUser():
			b.WriteString(wordwrap.String(msg.Text, wrapWidth))
		default:
			b.WriteString(m.md.render(msg.Text, wrapWidth))
		}
		b.WriteString("\n\n")
	}

	if snap.State == conversation.StateSending {
		b.WriteString(pendingStyle.Render("Assistant is thinking..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.composer.Blur()
		m.mode = listView
		return m.syncList(), nil

	case "enter":
		if m.opening != "" {
			m.err = conversation.ErrNotReady
			return m, nil
		}
		turn, err := m.ws.Conversation.Begin(m.composer.Value())
		if errors.Is(err, conversation.ErrEmptyMessage) {
			return m, nil
		}
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = ""
		m.composer.Reset()
		m = m.refreshChat()
		m.viewport.GotoBottom()
		return m, sendTurn(m.ws, turn)

	case "ctrl+y":
		answer, ok := m.ws.Conversation.Snapshot().Conversation().LastAnswer()
		if !ok {
			m.err = errNoAnswer
			return m, nil
		}
		return m, copyToClipboard(answer)

	case "ctrl+r":
		// Re-fetch the open conversation from the server
		id := m.ws.Conversation.ActiveID()
		if id == "" {
			return m, nil
		}
		m.ws.Conversation.Reset()
		m.opening = id
		m.viewport.SetContent(metaStyle.Render("Loading conversation..."))
		return m, selectConversation(m.ws, id)

	case "pgup", "pgdown", "ctrl+u", "ctrl+d", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) viewChat() string {
	var b strings.Builder

	snap := m.ws.Conversation.Snapshot()
	title := snap.Title
	if title == "" {
		title = snap.ActiveID
	}
	if m.opening != "" {
		title = m.opening
	}
	header := titleStyle.Render(title)
	if snap.ActiveID != "" && m.opening == "" {
		header += " " + metaStyle.Render(fmt.Sprintf("(%d messages)", len(snap.Messages)))
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(m.width, 1)) + "\n")

	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(strings.Repeat("─", max(m.width, 1)) + "\n")
	b.WriteString(m.composer.View() + "\n")

	scroll := ""
	if !m.viewport.AtBottom() {
		scroll = fmt.Sprintf(" • %3.f%%", m.viewport.ScrollPercent()*100)
	}
	b.WriteString(m.footer("enter send • ctrl+y copy answer • ctrl+r reload • pgup/pgdn scroll • esc conversations" + scroll))

	return b.String()
}
