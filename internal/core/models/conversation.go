package models

import (
	"errors"
	"time"
)

// ConversationSummary is one entry in the server's conversation history
type ConversationSummary struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Validate checks if the summary has required fields
func (s *ConversationSummary) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	return nil
}

// DisplayTitle returns the title, falling back to the id for untitled chats
func (s ConversationSummary) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if len(s.ID) > 12 {
		return s.ID[:12] + "..."
	}
	return s.ID
}

// Conversation is the materialized message log of one conversation
type Conversation struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// LastAnswer returns the text of the most recent committed assistant message
func (c Conversation) LastAnswer() (string, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.Role == RoleAssistant && m.Status == StatusCommitted {
			return m.Text, true
		}
	}
	return "", false
}
