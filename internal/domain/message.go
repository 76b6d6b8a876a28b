package domain

import (
	"errors"
	"time"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

// KindTooLarge labels input lines longer than the configured maximum.
const KindTooLarge = "too_large"

// Rejection describes an input line that could not be decoded into a message.
type Rejection struct {
	Source     string    `json:"source"` // input name, "-" for stdin
	Line       int       `json:"line"`
	Kind       string    `json:"kind"`
	Field      string    `json:"field,omitempty"`
	Error      string    `json:"error"`
	Raw        string    `json:"raw"`
	RejectedAt time.Time `json:"rejected_at"`
}

// NewRejection builds a rejection for a line that failed to decode.
func NewRejection(source string, line int, raw []byte, err error) Rejection {
	r := Rejection{
		Source:     source,
		Line:       line,
		Kind:       typedef.KindName(err),
		Error:      err.Error(),
		Raw:        string(raw),
		RejectedAt: time.Now().UTC(),
	}
	var fieldErr *typedef.FieldError
	if errors.As(err, &fieldErr) {
		r.Field = fieldErr.Field
	}
	return r
}

// Summary totals a validation run.
type Summary struct {
	Lines         int            `json:"lines"`
	Accepted      int            `json:"accepted"`
	Rejected      int            `json:"rejected"`
	UnknownLevels int            `json:"unknown_levels"`
	Redacted      int            `json:"redacted"`
	ByKind        map[string]int `json:"by_kind,omitempty"`
}

// Add folds other into s.
func (s *Summary) Add(other Summary) {
	s.Lines += other.Lines
	s.Accepted += other.Accepted
	s.Rejected += other.Rejected
	s.UnknownLevels += other.UnknownLevels
	s.Redacted += other.Redacted
	for kind, n := range other.ByKind {
		if s.ByKind == nil {
			s.ByKind = make(map[string]int)
		}
		s.ByKind[kind] += n
	}
}
