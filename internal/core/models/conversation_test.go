package models

import (
	"testing"
	"time"
)

func TestConversationSummaryValidation(t *testing.T) {
	tests := []struct {
		name    string
		summary ConversationSummary
		wantErr bool
	}{
		{
			name: "valid summary",
			summary: ConversationSummary{
				ID:        "65f1c0ffee",
				Title:     "report.pdf",
				CreatedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name:    "missing id",
			summary: ConversationSummary{Title: "report.pdf"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.summary.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"USER", RoleUser},
		{"bot", RoleAssistant},
		{"assistant", RoleAssistant},
		{"", RoleAssistant},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLastAnswer(t *testing.T) {
	c := Conversation{
		ID: "c1",
		Messages: []Message{
			UserMessage("hi", StatusCommitted),
			AssistantMessage("hello", StatusCommitted),
			UserMessage("again?", StatusFailed),
			AssistantMessage("Sorry", StatusFailed),
		},
	}

	got, ok := c.LastAnswer()
	if !ok || got != "hello" {
		t.Errorf("LastAnswer() = %q, %v; want %q, true", got, ok, "hello")
	}

	if _, ok := (Conversation{}).LastAnswer(); ok {
		t.Error("LastAnswer() on empty conversation should report false")
	}
}

func TestDisplayTitle(t *testing.T) {
	s := ConversationSummary{ID: "0123456789abcdef"}
	if got := s.DisplayTitle(); got != "0123456789ab..." {
		t.Errorf("DisplayTitle() = %q", got)
	}
	s.Title = "Doc A"
	if got := s.DisplayTitle(); got != "Doc A" {
		t.Errorf("DisplayTitle() = %q", got)
	}
}
