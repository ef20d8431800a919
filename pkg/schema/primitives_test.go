package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritpath/secgate/pkg/domain"
)

func mustBuild(t *testing.T, kind domain.SchemaKind, opts *domain.Options) Validator {
	t.Helper()
	v, err := Build(kind, opts)
	require.NoError(t, err)
	return v
}

func TestEmailValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaEmail, nil)

	outcome := v.Validate("  User@Example.COM  ")
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)
	assert.Equal(t, "user@example.com", outcome.SanitizedData)

	cases := []struct {
		name string
		in   any
	}{
		{"missing at sign", "userexample.com"},
		{"missing domain", "user@"},
		{"spaces inside", "us er@example.com"},
		{"empty", ""},
		{"whitespace only", "   "},
		{"not a string", float64(42)},
		{"nil", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			assert.False(t, outcome.Valid)
			require.Len(t, outcome.Errors, 1)
			assert.Equal(t, "value", outcome.Errors[0].Path)
			assert.Nil(t, outcome.SanitizedData)
		})
	}
}

func TestPhoneValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaPhone, nil)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain digits", "15551234567", "15551234567"},
		{"plus prefix", "+15551234567", "15551234567"},
		{"separators stripped", "+1 (555) 123-4567", "15551234567"},
		{"dots", "555.123.4567", "5551234567"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			require.True(t, outcome.Valid, "errors: %v", outcome.Errors)
			assert.Equal(t, tc.want, outcome.SanitizedData)
		})
	}

	invalid := []struct {
		name string
		in   any
	}{
		{"leading zero", "0123456789"},
		{"too long", "+123456789012345678"},
		{"letters", "call-me-maybe"},
		{"empty", ""},
		{"not a string", true},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			assert.False(t, outcome.Valid)
		})
	}
}

func TestUUIDValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaUUID, nil)

	outcome := v.Validate("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", outcome.SanitizedData)

	for _, in := range []string{
		"6f9619ff8b86d011b42d00c04fc964ff",
		"{6f9619ff-8b86-d011-b42d-00c04fc964ff}",
		"urn:uuid:6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"not-a-uuid",
		"",
	} {
		outcome := v.Validate(in)
		assert.False(t, outcome.Valid, "%q should be rejected", in)
	}
}

func TestURLValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaURL, nil)

	outcome := v.Validate("  https://example.com/path?q=1  ")
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)
	assert.Equal(t, "https://example.com/path?q=1", outcome.SanitizedData)

	for _, in := range []string{
		"javascript:alert(1)",
		"file:///etc/passwd",
		"data:text/html,hi",
		"ftp://example.com",
		"//example.com",
		"example.com",
		"",
	} {
		outcome := v.Validate(in)
		assert.False(t, outcome.Valid, "%q should be rejected", in)
	}
}

func TestSanitizedTextValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaSanitizedText, &domain.Options{MaxLength: 10})

	outcome := v.Validate("  hello  ")
	require.True(t, outcome.Valid)
	assert.Equal(t, "hello", outcome.SanitizedData)

	// Angle brackets and braces are stripped, whitespace runs collapse.
	outcome = v.Validate("a <b>  c")
	require.True(t, outcome.Valid)
	assert.Equal(t, "a b c", outcome.SanitizedData)

	// Exactly at the limit passes; one over is rejected with the field path.
	outcome = v.Validate(strings.Repeat("x", 10))
	assert.True(t, outcome.Valid)

	outcome = v.Validate(strings.Repeat("x", 11))
	require.False(t, outcome.Valid)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "value", outcome.Errors[0].Path)
	assert.Equal(t, "must be at most 10 characters", outcome.Errors[0].Message)

	// Length is judged on the trimmed value, before character stripping.
	outcome = v.Validate("   " + strings.Repeat("x", 10) + "   ")
	assert.True(t, outcome.Valid)

	outcome = v.Validate("")
	assert.False(t, outcome.Valid)
}

func TestRichTextValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaRichText, nil)

	outcome := v.Validate("A longer essay with <b>basic</b> markup and line\nbreaks.")
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	for _, in := range []string{
		"<script>alert(1)</script>",
		"<IFRAME src=x>",
		"<object data=x>",
		"click javascript:here",
		`<img onerror=alert(1)>`,
	} {
		outcome := v.Validate(in)
		require.False(t, outcome.Valid, "%q should be rejected", in)
		assert.Equal(t, "contains disallowed markup", outcome.Errors[0].Message)
	}

	outcome = v.Validate(strings.Repeat("a", defaultRichTextMaxLength+1))
	assert.False(t, outcome.Valid)
}

func TestFileUploadValidator(t *testing.T) {
	v := mustBuild(t, domain.SchemaFileUpload, nil)

	outcome := v.Validate(map[string]any{
		"filename": "transcript_2026.pdf",
		"size":     float64(1024),
		"mimeType": "Application/PDF",
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)
	data := outcome.SanitizedData.(map[string]any)
	assert.Equal(t, "transcript_2026.pdf", data["filename"])
	assert.Equal(t, int64(1024), data["size"])
	assert.Equal(t, "application/pdf", data["mimeType"])

	cases := []struct {
		name string
		in   map[string]any
		path string
	}{
		{"path traversal filename", map[string]any{"filename": "../../etc/passwd", "size": float64(1), "mimeType": "image/png"}, "filename"},
		{"zero size", map[string]any{"filename": "a.png", "size": float64(0), "mimeType": "image/png"}, "size"},
		{"fractional size", map[string]any{"filename": "a.png", "size": 1.5, "mimeType": "image/png"}, "size"},
		{"oversized", map[string]any{"filename": "a.png", "size": float64(defaultFileMaxSize + 1), "mimeType": "image/png"}, "size"},
		{"disallowed mime", map[string]any{"filename": "a.exe", "size": float64(1), "mimeType": "application/x-msdownload"}, "mimeType"},
		{"missing filename", map[string]any{"size": float64(1), "mimeType": "image/png"}, "filename"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Validate(tc.in)
			require.False(t, outcome.Valid)
			assert.Equal(t, tc.path, outcome.Errors[0].Path)
			assert.Nil(t, outcome.SanitizedData)
		})
	}

	outcome = v.Validate("not an object")
	require.False(t, outcome.Valid)
	assert.Equal(t, "value", outcome.Errors[0].Path)
}

func TestFileUploadValidatorCustomLimits(t *testing.T) {
	v := mustBuild(t, domain.SchemaFileUpload, &domain.Options{
		MaxSize:          2048,
		AllowedMIMETypes: []string{"image/webp"},
	})

	outcome := v.Validate(map[string]any{
		"filename": "avatar.webp",
		"size":     float64(2048),
		"mimeType": "image/webp",
	})
	require.True(t, outcome.Valid, "errors: %v", outcome.Errors)

	outcome = v.Validate(map[string]any{
		"filename": "avatar.webp",
		"size":     float64(2049),
		"mimeType": "image/webp",
	})
	assert.False(t, outcome.Valid)

	outcome = v.Validate(map[string]any{
		"filename": "a.png",
		"size":     float64(10),
		"mimeType": "image/png",
	})
	assert.False(t, outcome.Valid)
}
