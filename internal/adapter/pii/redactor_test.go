package pii

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

func TestRedactor(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	redactor := NewRedactor([]string{"ssn", " PASSWORD ", ""}, logger)

	tests := []struct {
		name           string
		details        typedef.Details
		expectedValues []string
		expectRedacted bool
	}{
		{
			name: "Redact single detail",
			details: typedef.Details{
				{Key: "SSN", Position: 1, Type: "string", Value: "000-00-0000", ValueRaw: json.RawMessage(`"000-00-0000"`)},
				{Key: "NAME", Position: 2, Type: "string", Value: "Bob"},
			},
			expectedValues: []string{RedactedPlaceholder, "Bob"},
			expectRedacted: true,
		},
		{
			name: "Redact multiple details, key case ignored",
			details: typedef.Details{
				{Key: "ssn", Value: "1"},
				{Key: "Password", Value: "hunter2"},
			},
			expectedValues: []string{RedactedPlaceholder, RedactedPlaceholder},
			expectRedacted: true,
		},
		{
			name:           "No details to redact",
			details:        typedef.Details{{Key: "NAME", Value: "Mary"}},
			expectedValues: []string{"Mary"},
			expectRedacted: false,
		},
		{
			name:           "Empty details",
			details:        typedef.Details{},
			expectedValues: []string{},
			expectRedacted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := make(typedef.Details, len(tt.details))
			copy(original, tt.details)
			msg := typedef.SenzingMessage{ID: "m-1", Details: tt.details}

			out, redacted := redactor.Redact(msg)

			if redacted != tt.expectRedacted {
				t.Errorf("Redact() redacted = %v, want %v", redacted, tt.expectRedacted)
			}
			if len(out.Details) != len(tt.expectedValues) {
				t.Fatalf("expected %d details, got %d", len(tt.expectedValues), len(out.Details))
			}
			for i, want := range tt.expectedValues {
				if out.Details[i].Value != want {
					t.Errorf("detail %d: got value %q, want %q", i, out.Details[i].Value, want)
				}
				if want == RedactedPlaceholder && out.Details[i].HasValueRaw() {
					t.Errorf("detail %d: expected valueRaw to be dropped", i)
				}
				if out.Details[i].Position != tt.details[i].Position {
					t.Errorf("detail %d: position changed", i)
				}
			}
			for i := range original {
				if msg.Details[i].Value != original[i].Value {
					t.Errorf("input detail %d was modified", i)
				}
			}
		})
	}
}

func TestRedactor_Disabled(t *testing.T) {
	redactor := NewRedactor(nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if redactor.Enabled() {
		t.Fatal("expected redactor with no keys to be disabled")
	}
	msg := typedef.SenzingMessage{Details: typedef.Details{{Key: "SSN", Value: "1"}}}
	out, redacted := redactor.Redact(msg)
	if redacted || out.Details[0].Value != "1" {
		t.Errorf("expected message to pass through, got %+v", out)
	}
}
