package schema

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/meritpath/secgate/pkg/domain"
)

// vd is the shared go-playground validator instance backing the primitive
// format checks (email, URL, UUID). Var-mode validation only; no struct tags.
var vd = validator.New()

// errList accumulates field errors without short-circuiting.
type errList struct {
	errs []domain.FieldError
}

func (l *errList) add(path, message string) {
	l.errs = append(l.errs, domain.FieldError{Path: path, Message: message})
}

func (l *errList) addf(path, format string, args ...any) {
	l.add(path, fmt.Sprintf(format, args...))
}

func (l *errList) empty() bool {
	return len(l.errs) == 0
}

func (l *errList) outcome(sanitized any) domain.ValidationOutcome {
	if l.empty() {
		return domain.Valid(sanitized)
	}
	return domain.Invalid(l.errs)
}

// asString extracts a string scalar from the untyped tree.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asNumber extracts a numeric scalar. JSON decoding produces float64, but
// callers constructing requests in-process may pass native ints.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asObject extracts a map node.
func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asList extracts a sequence node.
func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// fieldPath joins a parent path with a field name.
func fieldPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

// indexPath addresses one element of a sequence field.
func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

// requireString fetches obj[field] as a string, recording an error when the
// field is missing or not a string. Returns ok=false when the value is
// unusable.
func requireString(l *errList, obj map[string]any, parent, field string) (string, bool) {
	raw, present := obj[field]
	if !present || raw == nil {
		l.add(fieldPath(parent, field), "is required")
		return "", false
	}
	s, ok := asString(raw)
	if !ok {
		l.add(fieldPath(parent, field), "must be a string")
		return "", false
	}
	return s, true
}

// optionalString fetches obj[field] as a string when present. A present
// non-string value is recorded as an error.
func optionalString(l *errList, obj map[string]any, parent, field string) (string, bool) {
	raw, present := obj[field]
	if !present || raw == nil {
		return "", false
	}
	s, ok := asString(raw)
	if !ok {
		l.add(fieldPath(parent, field), "must be a string")
		return "", false
	}
	return s, true
}

// requireNumber fetches obj[field] as a number, recording an error when the
// field is missing or not numeric.
func requireNumber(l *errList, obj map[string]any, parent, field string) (float64, bool) {
	raw, present := obj[field]
	if !present || raw == nil {
		l.add(fieldPath(parent, field), "is required")
		return 0, false
	}
	n, ok := asNumber(raw)
	if !ok {
		l.add(fieldPath(parent, field), "must be a number")
		return 0, false
	}
	return n, true
}

// optionalNumber fetches obj[field] as a number when present.
func optionalNumber(l *errList, obj map[string]any, parent, field string) (float64, bool) {
	raw, present := obj[field]
	if !present || raw == nil {
		return 0, false
	}
	n, ok := asNumber(raw)
	if !ok {
		l.add(fieldPath(parent, field), "must be a number")
		return 0, false
	}
	return n, true
}

// isWholeNumber reports whether a float carries no fractional part, used for
// fields that must be integers (years, counts, pagination).
func isWholeNumber(n float64) bool {
	return n == float64(int64(n))
}
