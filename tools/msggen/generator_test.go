package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

func TestGenerator_ValidLinesDecode(t *testing.T) {
	gen := newGenerator(1, 0)
	for i := 0; i < 100; i++ {
		line, kind, err := gen.next(time.Now())
		if err != nil {
			t.Fatalf("next() returned an unexpected error: %v", err)
		}
		if kind != "" {
			t.Fatalf("expected a valid line, got kind %q", kind)
		}
		if _, err := typedef.Decode(line); err != nil {
			t.Fatalf("generated line does not decode: %v\n%s", err, line)
		}
	}
}

func TestGenerator_CorruptLinesAreRejected(t *testing.T) {
	gen := newGenerator(7, 1)
	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		line, kind, err := gen.next(time.Now())
		if err != nil {
			t.Fatalf("next() returned an unexpected error: %v", err)
		}
		_, decodeErr := typedef.Decode(line)
		if decodeErr == nil {
			t.Fatalf("expected corrupted line to be rejected: %s", line)
		}
		if got := typedef.KindName(decodeErr); got != kind {
			t.Fatalf("expected kind %q, got %q for %s", kind, got, line)
		}
		seen[kind] = true
	}
	for _, kind := range []string{"missing_required_field", "wrong_kind", "out_of_range", "bad_timestamp", "malformed_json"} {
		if !seen[kind] {
			t.Errorf("expected kind %q to be generated", kind)
		}
	}
}

func TestGenerator_ValueRawMatchesValue(t *testing.T) {
	gen := newGenerator(3, 0)
	msg, err := gen.message(time.Now())
	if err != nil {
		t.Fatalf("message() returned an unexpected error: %v", err)
	}
	for i, detail := range msg.Details {
		var n int
		if err := detail.UnmarshalValueRaw(&n); err != nil {
			t.Fatalf("detail %d: valueRaw does not decode: %v", i, err)
		}
		if fmt.Sprint(n) != detail.Value {
			t.Errorf("detail %d: valueRaw %d does not match value %q", i, n, detail.Value)
		}
	}
}
