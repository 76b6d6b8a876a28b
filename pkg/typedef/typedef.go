// Package typedef declares the Senzing message envelope and its canonical
// JSON encoding.
//
// A producer builds a SenzingMessage and encodes it with Encode (or
// json.Marshal); a consumer decodes it with Decode (or json.Unmarshal).
// Decoding is strict about the shape of the envelope and lenient about
// unknown fields. json.Unmarshal reports syntax errors as *json.SyntaxError
// before the envelope decoder runs; Decode reports them as ErrMalformedJSON.
//
//	msg, err := typedef.Decode(line)
//	if errors.Is(err, typedef.ErrMissingRequiredField) {
//	    // ...
//	}
//
// All records are plain values and safe for concurrent readers.
package typedef

import (
	"encoding/json"
	"errors"
	"time"
)

// SenzingMessage is the envelope emitted by the message generator.
// Every field is required on the wire.
type SenzingMessage struct {
	ID       string    `json:"id"`       // Identifier of the message instance.
	Level    Level     `json:"level"`    // TRACE, DEBUG, INFO, WARN, ERROR, FATAL or PANIC by convention.
	Time     time.Time `json:"time"`     // RFC 3339, offset preserved.
	Duration int32     `json:"duration"` // Units are defined by the producer.
	Location string    `json:"location"` // Code site that generated the message.
	Status   string    `json:"status"`   // Producer-defined status.
	Text     string    `json:"text"`     // Human-readable rendering.
	Details  Details   `json:"details"`  // Objects sent to the message generator.
	Errors   Errors    `json:"errors"`   // Error stack, outermost first.
}

// Detail is a single observation published by the message generator.
type Detail struct {
	Key      string          `json:"key"`
	Position int32           `json:"position"` // Order given by the producer; list order wins.
	Type     string          `json:"type"`     // Datatype of the value, producer vocabulary.
	Value    string          `json:"value"`    // The value in string form.
	ValueRaw json.RawMessage `json:"valueRaw,omitempty"`
}

// Details is an ordered list of details.
type Details []Detail

// Errors is a stack of error texts, outermost first.
type Errors []string

// ErrValueRawAbsent is returned by UnmarshalValueRaw when the detail carries no valueRaw.
var ErrValueRawAbsent = errors.New("typedef: valueRaw is absent")

var jsonNull = []byte("null")

// Offset returns the UTC offset of Time in seconds.
func (m SenzingMessage) Offset() int {
	_, offset := m.Time.Zone()
	return offset
}

// HasValueRaw reports whether valueRaw was present, including as JSON null.
func (d Detail) HasValueRaw() bool {
	return len(d.ValueRaw) > 0
}

// IsValueRawNull reports whether valueRaw was present as JSON null.
func (d Detail) IsValueRawNull() bool {
	return string(d.ValueRaw) == string(jsonNull)
}

// UnmarshalValueRaw decodes valueRaw into v.
func (d Detail) UnmarshalValueRaw(v any) error {
	if !d.HasValueRaw() {
		return ErrValueRawAbsent
	}
	return json.Unmarshal(d.ValueRaw, v)
}

// NewValueRaw encodes v for use as a Detail.ValueRaw.
// A nil v yields JSON null, which is distinct from an absent valueRaw.
func NewValueRaw(v any) (json.RawMessage, error) {
	data, err := marshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
