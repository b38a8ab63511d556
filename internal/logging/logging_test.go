package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelWarn)
	log.SetOutput(&buf)

	log.Info("hidden")
	log.Warn("shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 1") {
		t.Errorf("output = %q, want warn line", out)
	}
}

func TestNamedSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelInfo)
	root.SetOutput(&buf)

	audio := root.Named("audio").Named("speaker")
	audio.Info("ready")

	if !strings.Contains(buf.String(), "[INFO] audio.speaker: ready") {
		t.Errorf("output = %q, want prefixed line", buf.String())
	}

	root.SetLevel(LevelError)
	if audio.Enabled(LevelInfo) {
		t.Error("child should follow parent level")
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	if log.Enabled(LevelError) {
		t.Error("Discard logger should not enable any level")
	}
	log.Error("nothing")
}
