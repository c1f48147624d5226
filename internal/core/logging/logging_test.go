package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init("warn", "text", &buf); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { log = newDiscard() })

	Infof("quiet %d", 1)
	Warnf("loud %d", 2)

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "loud 2") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestInit_JSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init("debug", "json", &buf); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { log = newDiscard() })

	WithFields(logrus.Fields{"conversation_id": "c1"}).Info("selected")

	out := buf.String()
	if !strings.Contains(out, `"conversation_id":"c1"`) {
		t.Errorf("expected JSON field in output: %q", out)
	}
}

func TestInit_UnknownLevelFallsBackToWarn(t *testing.T) {
	var buf bytes.Buffer
	if err := Init("chatty", "text", &buf); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { log = newDiscard() })

	if Logger().GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", Logger().GetLevel())
	}
}
