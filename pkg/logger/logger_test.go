package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func newBufferLogger(level Level) (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	levelVar := &slog.LevelVar{}
	levelVar.Set(slogLevel(level))
	return &SlogLogger{
		logger: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: levelVar})),
		level:  levelVar,
	}, buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel)

	l.Info("hidden")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn line should pass at warn level")
	}
}

func TestLogger_SetLevelLive(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.Debug("before")
	l.SetLevel(DebugLevel)
	l.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("debug filtered before level change")
	}
	if !strings.Contains(out, "after") {
		t.Error("debug should pass after level change")
	}
}

func TestLogger_WithAttributes(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.With("component", "retrieval").Info("ranked", "candidates", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["component"] != "retrieval" {
		t.Errorf("expected component attribute, got %v", line)
	}
	if line["candidates"] != float64(3) {
		t.Errorf("expected candidates attribute, got %v", line)
	}
}

func TestNop_Discards(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	l.Error("still nothing")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}
