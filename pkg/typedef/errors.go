package typedef

import (
	"errors"
	"fmt"
	"strings"
)

// Decode failure kinds. Every error returned by the decoders matches exactly
// one of these with errors.Is.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrWrongKind            = errors.New("wrong kind")
	ErrOutOfRange           = errors.New("out of range")
	ErrBadTimestamp         = errors.New("bad timestamp")
	ErrMalformedJSON        = errors.New("malformed JSON")
)

// FieldError describes a decode failure at a specific field.
type FieldError struct {
	Field string // Path such as "details[2].position"; empty for the whole document.
	Kind  error  // One of the Err* kinds above.
	Err   error  // Underlying cause, may be nil.
}

func (e *FieldError) Error() string {
	var b strings.Builder
	b.WriteString("typedef: ")
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " %q", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FieldError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a stable snake_case name for the failure kind of err,
// or "unknown" when err is not a decode error.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrMissingRequiredField):
		return "missing_required_field"
	case errors.Is(err, ErrWrongKind):
		return "wrong_kind"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrBadTimestamp):
		return "bad_timestamp"
	case errors.Is(err, ErrMalformedJSON):
		return "malformed_json"
	default:
		return "unknown"
	}
}

func missingField(path string) error {
	return &FieldError{Field: path, Kind: ErrMissingRequiredField}
}

func wrongKind(path string, want, got jsonKind) error {
	return &FieldError{Field: path, Kind: ErrWrongKind, Err: fmt.Errorf("expected %s, got %s", want, got)}
}

func outOfRange(path, literal string) error {
	return &FieldError{Field: path, Kind: ErrOutOfRange, Err: fmt.Errorf("%s does not fit in int32", literal)}
}

func badTimestamp(path string, cause error) error {
	return &FieldError{Field: path, Kind: ErrBadTimestamp, Err: cause}
}

func malformed(cause error) error {
	return &FieldError{Kind: ErrMalformedJSON, Err: cause}
}
