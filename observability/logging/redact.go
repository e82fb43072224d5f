package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in
// logs.
const RedactedValue = "[REDACTED]"

// sensitiveKeys lists the log keys that must never reach a sink verbatim:
// RPC bearer tokens and keystore passphrases.
var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"bearer":        {},
	"authorization": {},
	"passphrase":    {},
	"privatekey":    {},
}

// IsSensitive reports whether values logged under the key must be masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := sensitiveKeys[normalized]
	return ok
}

// MaskField returns a slog.Attr with the value replaced by the redaction
// placeholder when the key is sensitive. Empty values pass through to avoid
// noise.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !IsSensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
