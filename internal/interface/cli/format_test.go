package cli

import (
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/neilberkman/chatify/internal/core/export"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"collapses   inner\nwhitespace", 40, "collapses inner whitespace"},
		{"a rather long conversation title", 12, "a rather ..."},
	}

	for _, tt := range tests {
		got := truncate(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if w := runewidth.StringWidth(got); w > tt.width {
			t.Errorf("truncate(%q, %d) is %d cells wide", tt.in, tt.width, w)
		}
	}
}

func TestTruncate_WideRunes(t *testing.T) {
	got := truncate("日本語のタイトルです", 9)
	if w := runewidth.StringWidth(got); w > 9 {
		t.Errorf("truncate() = %q is %d cells wide, want <= 9", got, w)
	}
}

func TestExtension(t *testing.T) {
	tests := map[export.Format]string{
		export.Markdown: "md",
		export.JSON:     "json",
		export.YAML:     "yaml",
	}
	for format, want := range tests {
		if got := extension(format); got != want {
			t.Errorf("extension(%v) = %q, want %q", format, got, want)
		}
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := NewSpinner("waiting")
	s.Stop()
	s.Stop()
}
