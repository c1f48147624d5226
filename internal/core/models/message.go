package models

import "strings"

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole normalizes a wire role. The backend stores answers as "bot".
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return RoleUser
	default:
		return RoleAssistant
	}
}

// Status tracks where a message is in the send/answer round trip
type Status string

const (
	StatusCommitted Status = "committed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Message is a single entry in a conversation log
type Message struct {
	Role   Role   `json:"role" yaml:"role"`
	Text   string `json:"text" yaml:"text"`
	Status Status `json:"status" yaml:"status"`
}

// UserMessage builds a user-authored message with the given status
func UserMessage(text string, status Status) Message {
	return Message{Role: RoleUser, Text: text, Status: status}
}

// AssistantMessage builds an assistant-authored message with the given status
func AssistantMessage(text string, status Status) Message {
	return Message{Role: RoleAssistant, Text: text, Status: status}
}

// IsUser reports whether the message was written by the user
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}
