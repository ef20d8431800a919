package schema

import (
	"regexp"
	"strings"

	"github.com/meritpath/secgate/pkg/domain"
)

// Default limits for the primitive kinds.
const (
	defaultTextMinLength     = 1
	defaultTextMaxLength     = 500
	defaultRichTextMaxLength = 10000
	defaultFileMaxSize       = 50 << 20 // 50 MiB
	maxFilenameLength        = 255
)

// rootPath is the error path used when a primitive kind is validated as the
// whole request payload rather than as a field of a composite.
const rootPath = "value"

var defaultAllowedMIMETypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg",
	"image/png",
	"text/plain",
}

var (
	// International dial form: optional +, leading nonzero digit, at most 15
	// digits total. Separator characters are tolerated on input and stripped
	// during normalization.
	phonePattern    = regexp.MustCompile(`^\+?[1-9][0-9]{0,14}$`)
	phoneSeparators = regexp.MustCompile(`[\s().-]`)
	nonDigits       = regexp.MustCompile(`[^0-9]`)

	filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

	whitespaceRuns = regexp.MustCompile(`\s+`)

	// Markup signatures that reject a RichText value outright. A second,
	// schema-scoped line of defense behind the perimeter scanner, specific to
	// fields expected to carry longer free text.
	richTextDanger = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*script\b`),
		regexp.MustCompile(`(?i)<\s*iframe\b`),
		regexp.MustCompile(`(?i)<\s*(?:object|embed)\b`),
		regexp.MustCompile(`(?i)javascript\s*:`),
		regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	}
)

// validateEmail normalizes and checks one email value. Shared by the Email
// kind and by composite fields.
func validateEmail(l *errList, path string, raw any) (string, bool) {
	s, ok := asString(raw)
	if !ok {
		l.add(path, "must be a string")
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		l.add(path, "is required")
		return "", false
	}
	if err := vd.Var(normalized, "email"); err != nil {
		l.add(path, "must be a valid email address")
		return "", false
	}
	return normalized, true
}

func validatePhone(l *errList, path string, raw any) (string, bool) {
	s, ok := asString(raw)
	if !ok {
		l.add(path, "must be a string")
		return "", false
	}
	compact := phoneSeparators.ReplaceAllString(strings.TrimSpace(s), "")
	if !phonePattern.MatchString(compact) {
		l.add(path, "must be a valid international phone number")
		return "", false
	}
	// Normalization step, not a validation relaxation: the accepted value
	// keeps digits only.
	return nonDigits.ReplaceAllString(compact, ""), true
}

func validateUUID(l *errList, path string, raw any) (string, bool) {
	s, ok := asString(raw)
	if !ok {
		l.add(path, "must be a string")
		return "", false
	}
	// The uuid tag matches the canonical 8-4-4-4-12 form only; urn: and
	// braced variants are rejected. Hex case is normalized up front so the
	// accepted value is always lowercase.
	normalized := strings.ToLower(s)
	if err := vd.Var(normalized, "uuid"); err != nil {
		l.add(path, "must be a canonical UUID")
		return "", false
	}
	return normalized, true
}

func validateURL(l *errList, path string, raw any) (string, bool) {
	s, ok := asString(raw)
	if !ok {
		l.add(path, "must be a string")
		return "", false
	}
	trimmed := strings.TrimSpace(s)
	// http_url requires an absolute URL whose scheme is exactly http or
	// https; javascript:, file: and data: all fail here.
	if err := vd.Var(trimmed, "http_url"); err != nil {
		l.add(path, "must be an absolute http or https URL")
		return "", false
	}
	return trimmed, true
}

func validateSanitizedText(l *errList, path string, raw any, minLen, maxLen int) (string, bool) {
	s, ok := asString(raw)
	if !ok {
		l.add(path, "must be a string")
		return "", false
	}
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < minLen {
		l.addf(path, "must be at least %d characters", minLen)
		return "", false
	}
	if len(trimmed) > maxLen {
		l.addf(path, "must be at most %d characters", maxLen)
		return "", false
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '{', '}':
			return -1
		}
		return r
	}, trimmed)
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, " ")
	return cleaned, true
}

func validateRichText(l *errList, path string, raw any, maxLen int) (string, bool) {
	s, ok := asString(raw)
	if !ok {
		l.add(path, "must be a string")
		return "", false
	}
	if len(s) > maxLen {
		l.addf(path, "must be at most %d characters", maxLen)
		return "", false
	}
	for _, expr := range richTextDanger {
		if expr.MatchString(s) {
			l.add(path, "contains disallowed markup")
			return "", false
		}
	}
	return s, true
}

type emailValidator struct{}

func (v *emailValidator) Kind() domain.SchemaKind { return domain.SchemaEmail }

func (v *emailValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	normalized, ok := validateEmail(&l, rootPath, raw)
	if !ok {
		return l.outcome(nil)
	}
	return l.outcome(normalized)
}

type phoneValidator struct{}

func (v *phoneValidator) Kind() domain.SchemaKind { return domain.SchemaPhone }

func (v *phoneValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	normalized, ok := validatePhone(&l, rootPath, raw)
	if !ok {
		return l.outcome(nil)
	}
	return l.outcome(normalized)
}

type uuidValidator struct{}

func (v *uuidValidator) Kind() domain.SchemaKind { return domain.SchemaUUID }

func (v *uuidValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	normalized, ok := validateUUID(&l, rootPath, raw)
	if !ok {
		return l.outcome(nil)
	}
	return l.outcome(normalized)
}

type urlValidator struct{}

func (v *urlValidator) Kind() domain.SchemaKind { return domain.SchemaURL }

func (v *urlValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	normalized, ok := validateURL(&l, rootPath, raw)
	if !ok {
		return l.outcome(nil)
	}
	return l.outcome(normalized)
}

type sanitizedTextValidator struct {
	minLen int
	maxLen int
}

func newSanitizedTextValidator(opts domain.Options) *sanitizedTextValidator {
	v := &sanitizedTextValidator{minLen: defaultTextMinLength, maxLen: defaultTextMaxLength}
	if opts.MinLength > 0 {
		v.minLen = opts.MinLength
	}
	if opts.MaxLength > 0 {
		v.maxLen = opts.MaxLength
	}
	return v
}

func (v *sanitizedTextValidator) Kind() domain.SchemaKind { return domain.SchemaSanitizedText }

func (v *sanitizedTextValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	cleaned, ok := validateSanitizedText(&l, rootPath, raw, v.minLen, v.maxLen)
	if !ok {
		return l.outcome(nil)
	}
	return l.outcome(cleaned)
}

type richTextValidator struct {
	maxLen int
}

func newRichTextValidator(opts domain.Options) *richTextValidator {
	v := &richTextValidator{maxLen: defaultRichTextMaxLength}
	if opts.MaxLength > 0 {
		v.maxLen = opts.MaxLength
	}
	return v
}

func (v *richTextValidator) Kind() domain.SchemaKind { return domain.SchemaRichText }

func (v *richTextValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	value, ok := validateRichText(&l, rootPath, raw, v.maxLen)
	if !ok {
		return l.outcome(nil)
	}
	return l.outcome(value)
}

type fileUploadValidator struct {
	maxSize      int64
	allowedMIMEs []string
}

func newFileUploadValidator(opts domain.Options) *fileUploadValidator {
	v := &fileUploadValidator{
		maxSize:      defaultFileMaxSize,
		allowedMIMEs: defaultAllowedMIMETypes,
	}
	if opts.MaxSize > 0 {
		v.maxSize = opts.MaxSize
	}
	if len(opts.AllowedMIMETypes) > 0 {
		v.allowedMIMEs = opts.AllowedMIMETypes
	}
	return v
}

func (v *fileUploadValidator) Kind() domain.SchemaKind { return domain.SchemaFileUpload }

func (v *fileUploadValidator) Validate(raw any) domain.ValidationOutcome {
	var l errList
	obj, ok := asObject(raw)
	if !ok {
		l.add(rootPath, "must be an object")
		return l.outcome(nil)
	}

	out := map[string]any{}

	if filename, ok := requireString(&l, obj, "", "filename"); ok {
		if len(filename) == 0 || len(filename) > maxFilenameLength {
			l.addf("filename", "must be between 1 and %d characters", maxFilenameLength)
		} else if !filenamePattern.MatchString(filename) {
			l.add("filename", "may only contain letters, digits, dot, underscore and hyphen")
		} else {
			out["filename"] = filename
		}
	}

	if size, ok := requireNumber(&l, obj, "", "size"); ok {
		if !isWholeNumber(size) || size < 1 || int64(size) > v.maxSize {
			l.addf("size", "must be between 1 and %d bytes", v.maxSize)
		} else {
			out["size"] = int64(size)
		}
	}

	if mimeType, ok := requireString(&l, obj, "", "mimeType"); ok {
		allowed := false
		for _, m := range v.allowedMIMEs {
			if strings.EqualFold(m, mimeType) {
				allowed = true
				break
			}
		}
		if !allowed {
			l.addf("mimeType", "must be one of: %s", strings.Join(v.allowedMIMEs, ", "))
		} else {
			out["mimeType"] = strings.ToLower(mimeType)
		}
	}

	return l.outcome(nullIfInvalid(&l, out))
}

// nullIfInvalid keeps the sanitizedData/errors exclusivity invariant: a
// partially populated object is never returned alongside errors.
func nullIfInvalid(l *errList, out any) any {
	if l.empty() {
		return out
	}
	return nil
}
