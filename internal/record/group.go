package record

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxGroupLen is the maximum length of a group key in bytes, after normalization.
const MaxGroupLen = 255

// NormalizeGroup validates a group key and returns its trimmed NFC form.
//
// Surrounding whitespace is not part of the key, and canonically
// equivalent spellings of the same name map to the same key, so " café"
// typed with a combining accent and "café" with a precomposed é share one
// rotation.
func NormalizeGroup(group string) (string, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return "", &ValidationError{Field: "group", Reason: "must not be empty"}
	}
	if !utf8.ValidString(group) {
		return "", &ValidationError{Field: "group", Reason: "must be valid UTF-8"}
	}
	for _, r := range group {
		if unicode.IsControl(r) {
			return "", &ValidationError{Field: "group", Reason: "must not contain control characters"}
		}
	}

	normalized := norm.NFC.String(group)
	if len(normalized) > MaxGroupLen {
		return "", &ValidationError{Field: "group", Reason: "exceeds 255 bytes"}
	}
	return normalized, nil
}
