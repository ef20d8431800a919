// Package sanitize implements the recursive cleanup pipeline applied to data
// that has already passed schema validation, plus the post-validation XSS
// neutralization pass. Both passes are idempotent: applying either twice
// produces the same result as once.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxStringLength is the hard ceiling applied to every string value,
	// independent of the schema's own length limits.
	MaxStringLength = 10000
	// MaxKeyLength caps re-derived map keys.
	MaxKeyLength = 100
)

// Clean recursively sanitizes a structurally valid value. Strings are trimmed,
// stripped of quote/backslash/semicolon and control characters, and truncated;
// slices are cleaned element-wise; map keys are reduced to alphanumerics and
// underscore, with keys that become empty dropped from the output entirely.
// Non-string scalars pass through unchanged.
func Clean(value any) any {
	switch v := value.(type) {
	case string:
		return CleanString(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clean(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			cleanKey := CleanKey(key)
			if cleanKey == "" {
				// Silently omitted, not an error.
				continue
			}
			out[cleanKey] = Clean(item)
		}
		return out
	default:
		return value
	}
}

// CleanString applies the scalar string rules. Character stripping runs before
// trimming so that removals can never expose new leading or trailing
// whitespace, which keeps the transform idempotent.
func CleanString(s string) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '\\', ';':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	trimmed := strings.TrimSpace(stripped)
	if len(trimmed) > MaxStringLength {
		trimmed = strings.TrimSpace(truncateRunes(trimmed, MaxStringLength))
	}
	return trimmed
}

// truncateRunes cuts s to at most limit bytes without splitting a multibyte
// rune; cutting mid-rune would leave invalid UTF-8 and break idempotence.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// CleanKey re-derives a map key: everything except alphanumerics and
// underscore is stripped, and the result is truncated. An empty result means
// the key (and its value) must be dropped.
func CleanKey(key string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, key)

	if len(cleaned) > MaxKeyLength {
		cleaned = cleaned[:MaxKeyLength]
	}
	return cleaned
}
