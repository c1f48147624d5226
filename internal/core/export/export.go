// Package export writes a conversation transcript as markdown, JSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"gopkg.in/yaml.v3"

	"github.com/neilberkman/chatify/internal/core/models"
)

// Format is an output format name
type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// ParseFormat accepts the format names and their common aliases
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want markdown, json or yaml)", s)
	}
}

// Transcript is the exported document
type Transcript struct {
	ID         string           `json:"id" yaml:"id"`
	Title      string           `json:"title" yaml:"title"`
	ExportedAt time.Time        `json:"exported_at" yaml:"exported_at"`
	Messages   []models.Message `json:"messages" yaml:"messages"`
}

// NewTranscript builds a transcript from a conversation
func NewTranscript(conv models.Conversation, now time.Time) Transcript {
	title := conv.Title
	if title == "" {
		title = models.ConversationSummary{ID: conv.ID}.DisplayTitle()
	}
	return Transcript{
		ID:         conv.ID,
		Title:      title,
		ExportedAt: now.UTC(),
		Messages:   conv.Messages,
	}
}

// Write renders t to w. tmpl is the mustache template used for markdown.
func Write(w io.Writer, format Format, t Transcript, tmpl string) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case Markdown:
		out, err := mustache.Render(tmpl, templateData(t))
		if err != nil {
			return fmt.Errorf("failed to render template: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func templateData(t Transcript) map[string]interface{} {
	messages := make([]map[string]interface{}, 0, len(t.Messages))
	for _, m := range t.Messages {
		label := "Assistant"
		if m.IsUser() {
			label = "You"
		}
		messages = append(messages, map[string]interface{}{
			"label":  label,
			"role":   string(m.Role),
			"text":   m.Text,
			"failed": m.Status == models.StatusFailed,
		})
	}
	return map[string]interface{}{
		"id":          t.ID,
		"title":       t.Title,
		"exported_at": t.ExportedAt.Format(time.RFC3339),
		"messages":    messages,
	}
}
