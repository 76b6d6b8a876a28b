// Package parser turns message strings, as found in log files and error
// texts, back into Senzing message envelopes.
package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

// Parse decodes a JSON envelope held in a string.
func Parse(message string) (*typedef.SenzingMessage, error) {
	result := &typedef.SenzingMessage{}
	if err := result.UnmarshalJSON([]byte(message)); err != nil {
		return result, fmt.Errorf("parser.Parse error: %w", err)
	}
	return result, nil
}

// IsJSON reports whether s is syntactically JSON once tabs and newlines are
// stripped, as they are in multi-line error texts.
func IsJSON(s string) bool {
	return json.Valid([]byte(cleanTabsAndNewlines(s)))
}

// MessageText returns the text of the envelope held in message, or message
// itself when it is not an envelope or its text is empty.
func MessageText(message string) string {
	parsed, err := Parse(message)
	if err != nil || parsed.Text == "" {
		return message
	}
	return parsed.Text
}

// Details returns the details of the envelope held in message as a map from
// key to value. A detail without a key is listed under its position. When
// keys repeat, the last detail wins. The map is empty when message is not an
// envelope.
func Details(message string) map[string]string {
	result := map[string]string{}
	parsed, err := Parse(message)
	if err != nil {
		return result
	}
	for _, detail := range parsed.Details {
		key := detail.Key
		if key == "" {
			key = strconv.Itoa(int(detail.Position))
		}
		result[key] = detail.Value
	}
	return result
}

func cleanTabsAndNewlines(s string) string {
	return strings.NewReplacer("\n", "", "\t", "").Replace(s)
}
