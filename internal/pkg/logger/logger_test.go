package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"trace", typedef.SlogLevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"fatal", typedef.SlogLevelFatal},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tc := range testCases {
		if got := ParseLevel(tc.input); got != tc.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestNewWithWriter_SenzingLevelNames(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "trace")

	log.Log(context.Background(), typedef.SlogLevelTrace, "tracing")
	log.Log(context.Background(), typedef.SlogLevelPanic, "panicking")
	log.Info("plain")

	dec := json.NewDecoder(&buf)
	var got []string
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("failed to decode log record: %v", err)
		}
		got = append(got, rec["level"].(string))
	}

	want := []string{"TRACE", "PANIC", "INFO"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: expected level %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected no output below WARN, got %q", buf.String())
	}
}
