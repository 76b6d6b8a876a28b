package pii

import (
	"log/slog"
	"strings"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks the values of message details whose key is on a deny list.
type Redactor struct {
	keysToRedact map[string]struct{}
	logger       *slog.Logger
}

// NewRedactor creates a Redactor for the given detail keys. Keys are matched
// case-insensitively; blank keys are ignored.
func NewRedactor(keys []string, logger *slog.Logger) *Redactor {
	keySet := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		keySet[strings.ToUpper(key)] = struct{}{}
	}
	return &Redactor{
		keysToRedact: keySet,
		logger:       logger,
	}
}

// Enabled reports whether any key is configured.
func (r *Redactor) Enabled() bool {
	return len(r.keysToRedact) > 0
}

// Redact returns msg with matching details masked: the value becomes the
// placeholder and valueRaw is dropped. The input message is not modified.
// The boolean reports whether anything was masked.
func (r *Redactor) Redact(msg typedef.SenzingMessage) (typedef.SenzingMessage, bool) {
	if !r.Enabled() || len(msg.Details) == 0 {
		return msg, false
	}

	var details typedef.Details
	for i, detail := range msg.Details {
		if _, ok := r.keysToRedact[strings.ToUpper(detail.Key)]; !ok {
			continue
		}
		if details == nil {
			details = make(typedef.Details, len(msg.Details))
			copy(details, msg.Details)
		}
		details[i].Value = RedactedPlaceholder
		details[i].ValueRaw = nil
	}
	if details == nil {
		return msg, false
	}

	r.logger.Debug("redacted message details", "message_id", msg.ID)
	msg.Details = details
	return msg, true
}
