package typedef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type jsonKind string

const (
	kindObject  jsonKind = "object"
	kindArray   jsonKind = "array"
	kindString  jsonKind = "string"
	kindNumber  jsonKind = "number"
	kindInteger jsonKind = "integer"
	kindBoolean jsonKind = "boolean"
	kindNull    jsonKind = "null"
	kindInvalid jsonKind = "invalid"
)

// Wire names of the envelope and detail fields.
const (
	fieldDetails  = "details"
	fieldDuration = "duration"
	fieldErrors   = "errors"
	fieldID       = "id"
	fieldLevel    = "level"
	fieldLocation = "location"
	fieldStatus   = "status"
	fieldText     = "text"
	fieldTime     = "time"

	fieldKey      = "key"
	fieldPosition = "position"
	fieldType     = "type"
	fieldValue    = "value"
	fieldValueRaw = "valueRaw"
)

// Sorted, so the first missing field reported is deterministic.
var (
	messageFields = []string{fieldDetails, fieldDuration, fieldErrors, fieldID, fieldLevel, fieldLocation, fieldStatus, fieldText, fieldTime}
	detailFields  = []string{fieldKey, fieldPosition, fieldType, fieldValue}
)

// Encode returns the compact JSON form of msg without HTML escaping and
// without a trailing newline.
func Encode(msg SenzingMessage) ([]byte, error) {
	return marshalNoEscape(msg)
}

// Decode parses a JSON envelope. Unknown fields are ignored.
func Decode(data []byte) (SenzingMessage, error) {
	var msg SenzingMessage
	err := msg.UnmarshalJSON(data)
	return msg, err
}

// DecodeDetail parses a single JSON detail object.
func DecodeDetail(data []byte) (Detail, error) {
	var detail Detail
	err := detail.UnmarshalJSON(data)
	return detail, err
}

// MarshalJSON encodes the nine envelope fields. Nil lists are written as [].
func (m SenzingMessage) MarshalJSON() ([]byte, error) {
	type wireMessage SenzingMessage
	wire := wireMessage(m)
	if wire.Details == nil {
		wire.Details = Details{}
	}
	if wire.Errors == nil {
		wire.Errors = Errors{}
	}
	return marshalNoEscape(wire)
}

// UnmarshalJSON decodes an envelope, failing with a *FieldError.
func (m *SenzingMessage) UnmarshalJSON(data []byte) error {
	if err := checkWellFormed(data); err != nil {
		return err
	}
	decoded, err := decodeMessage(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// UnmarshalJSON decodes a detail, failing with a *FieldError.
func (d *Detail) UnmarshalJSON(data []byte) error {
	if err := checkWellFormed(data); err != nil {
		return err
	}
	decoded, err := decodeDetail(data, "")
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}

func decodeMessage(data []byte) (SenzingMessage, error) {
	var msg SenzingMessage

	obj, err := decodeObject(data, "", messageFields)
	if err != nil {
		return msg, err
	}

	if msg.ID, err = decodeString(obj[fieldID], fieldID); err != nil {
		return msg, err
	}
	level, err := decodeString(obj[fieldLevel], fieldLevel)
	if err != nil {
		return msg, err
	}
	msg.Level = Level(level)
	if msg.Time, err = decodeTime(obj[fieldTime], fieldTime); err != nil {
		return msg, err
	}
	if msg.Duration, err = decodeInt32(obj[fieldDuration], fieldDuration); err != nil {
		return msg, err
	}
	if msg.Location, err = decodeString(obj[fieldLocation], fieldLocation); err != nil {
		return msg, err
	}
	if msg.Status, err = decodeString(obj[fieldStatus], fieldStatus); err != nil {
		return msg, err
	}
	if msg.Text, err = decodeString(obj[fieldText], fieldText); err != nil {
		return msg, err
	}
	if msg.Details, err = decodeDetails(obj[fieldDetails], fieldDetails); err != nil {
		return msg, err
	}
	if msg.Errors, err = decodeErrors(obj[fieldErrors], fieldErrors); err != nil {
		return msg, err
	}
	return msg, nil
}

func decodeDetail(data []byte, path string) (Detail, error) {
	var detail Detail

	obj, err := decodeObject(data, path, detailFields)
	if err != nil {
		return detail, err
	}

	if detail.Key, err = decodeString(obj[fieldKey], join(path, fieldKey)); err != nil {
		return detail, err
	}
	if detail.Position, err = decodeInt32(obj[fieldPosition], join(path, fieldPosition)); err != nil {
		return detail, err
	}
	if detail.Type, err = decodeString(obj[fieldType], join(path, fieldType)); err != nil {
		return detail, err
	}
	if detail.Value, err = decodeString(obj[fieldValue], join(path, fieldValue)); err != nil {
		return detail, err
	}
	if raw, ok := obj[fieldValueRaw]; ok {
		detail.ValueRaw = raw
	}
	return detail, nil
}

func decodeDetails(raw json.RawMessage, path string) (Details, error) {
	items, err := decodeArray(raw, path)
	if err != nil {
		return nil, err
	}
	details := make(Details, 0, len(items))
	for i, item := range items {
		detail, err := decodeDetail(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func decodeErrors(raw json.RawMessage, path string) (Errors, error) {
	items, err := decodeArray(raw, path)
	if err != nil {
		return nil, err
	}
	errs := make(Errors, 0, len(items))
	for i, item := range items {
		text, err := decodeString(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		errs = append(errs, text)
	}
	return errs, nil
}

// decodeObject splits an object into its members and checks that every
// required member is present.
func decodeObject(data []byte, path string, required []string) (map[string]json.RawMessage, error) {
	if kind := kindOf(data); kind != kindObject {
		return nil, wrongKind(path, kindObject, kind)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, malformed(err)
	}
	for _, name := range required {
		if _, ok := obj[name]; !ok {
			return nil, missingField(join(path, name))
		}
	}
	return obj, nil
}

func decodeArray(raw json.RawMessage, path string) ([]json.RawMessage, error) {
	if kind := kindOf(raw); kind != kindArray {
		return nil, wrongKind(path, kindArray, kind)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(err)
	}
	return items, nil
}

func decodeString(raw json.RawMessage, path string) (string, error) {
	if kind := kindOf(raw); kind != kindString {
		return "", wrongKind(path, kindString, kind)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(err)
	}
	return s, nil
}

// decodeInt32 accepts only plain integer literals; fractions and exponents
// are a kind mismatch even when their value is integral.
func decodeInt32(raw json.RawMessage, path string) (int32, error) {
	if kind := kindOf(raw); kind != kindNumber {
		return 0, wrongKind(path, kindInteger, kind)
	}
	literal := string(bytes.TrimSpace(raw))
	if strings.ContainsAny(literal, ".eE") {
		return 0, wrongKind(path, kindInteger, kindNumber)
	}
	n, err := strconv.ParseInt(literal, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, outOfRange(path, literal)
		}
		return 0, wrongKind(path, kindInteger, kindNumber)
	}
	return int32(n), nil
}

// decodeTime parses an RFC 3339 timestamp and pins the result to a fixed zone
// carrying the offset from the wire, so re-encoding reproduces it.
func decodeTime(raw json.RawMessage, path string) (time.Time, error) {
	s, err := decodeString(raw, path)
	if err != nil {
		return time.Time{}, err
	}
	// time.Parse also takes a comma before the fraction, which RFC 3339 does not.
	if strings.Contains(s, ",") {
		return time.Time{}, badTimestamp(path, errors.New("fraction separator must be '.'"))
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, badTimestamp(path, err)
	}
	_, offset := t.Zone()
	if offset <= -maxOffsetSeconds || offset >= maxOffsetSeconds {
		return time.Time{}, badTimestamp(path, fmt.Errorf("offset hour outside of range [0,23] in %q", s))
	}
	if t.Location() != time.UTC {
		t = t.In(time.FixedZone("", offset))
	}
	// Whatever is accepted here must encode again.
	if _, err := t.MarshalText(); err != nil {
		return time.Time{}, badTimestamp(path, err)
	}
	return t, nil
}

const maxOffsetSeconds = 24 * 60 * 60

func checkWellFormed(data []byte) error {
	if json.Valid(data) {
		return nil
	}
	var scratch json.RawMessage
	err := json.Unmarshal(data, &scratch)
	if err == nil {
		err = errors.New("invalid JSON")
	}
	return malformed(err)
}

func kindOf(raw []byte) jsonKind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return kindInvalid
	}
	switch raw[0] {
	case '{':
		return kindObject
	case '[':
		return kindArray
	case '"':
		return kindString
	case 't', 'f':
		return kindBoolean
	case 'n':
		return kindNull
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return kindNumber
	default:
		return kindInvalid
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
