package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/neilberkman/chatify/internal/core/models"
)

var (
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// renderMarkdown renders answer text for the terminal. Plain text is
// returned when stdout is not a terminal or rendering fails.
func renderMarkdown(text string) string {
	if !isTerminal(os.Stdout) {
		return text
	}
	width := terminalWidth() - 4
	if width > 100 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// printMessage writes one message with its role label
func printMessage(w io.Writer, m models.Message) {
	label := assistantLabelStyle.Render("Assistant")
	if m.IsUser() {
		label = userLabelStyle.Render("You")
	}
	switch m.Status {
	case models.StatusFailed:
		label += " " + failedStyle.Render("(failed)")
	case models.StatusPending:
		label += " " + dimStyle.Render("(sending)")
	}
	fmt.Fprintln(w, label)

	if m.IsUser() {
		fmt.Fprintln(w, m.Text)
	} else {
		fmt.Fprintln(w, renderMarkdown(m.Text))
	}
	fmt.Fprintln(w)
}

// formatAge formats a timestamp relative to now
func formatAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// truncate shortens s to at most width display cells
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// padRight pads s with spaces to width display cells
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
