package domain

// SchemaKind identifies which validator contract applies to a request. The
// set is closed: adding a kind is a compile-time change, not configuration.
type SchemaKind string

const (
	// SchemaEmail validates a single RFC-shaped email address.
	SchemaEmail SchemaKind = "email"
	// SchemaPhone validates an international-dial-form phone number.
	SchemaPhone SchemaKind = "phone"
	// SchemaUUID validates a canonical UUID string.
	SchemaUUID SchemaKind = "uuid"
	// SchemaURL validates an absolute http/https URL.
	SchemaURL SchemaKind = "url"
	// SchemaSanitizedText validates bounded free text with markup stripped.
	SchemaSanitizedText SchemaKind = "sanitized_text"
	// SchemaRichText validates longer free text, rejecting dangerous markup.
	SchemaRichText SchemaKind = "rich_text"
	// SchemaFileUpload validates file metadata (name, size, MIME type).
	SchemaFileUpload SchemaKind = "file_upload"
	// SchemaUserProfile validates a user profile document.
	SchemaUserProfile SchemaKind = "user_profile"
	// SchemaScholarshipApplication validates a scholarship application document.
	SchemaScholarshipApplication SchemaKind = "scholarship_application"
	// SchemaAssessmentSubmission validates an assessment submission document.
	SchemaAssessmentSubmission SchemaKind = "assessment_submission"
	// SchemaFinancialGoal validates a financial goal document.
	SchemaFinancialGoal SchemaKind = "financial_goal"
	// SchemaPagination validates listing pagination parameters.
	SchemaPagination SchemaKind = "pagination"
)

// Known reports whether the kind is part of the closed catalog.
func (k SchemaKind) Known() bool {
	switch k {
	case SchemaEmail, SchemaPhone, SchemaUUID, SchemaURL,
		SchemaSanitizedText, SchemaRichText, SchemaFileUpload,
		SchemaUserProfile, SchemaScholarshipApplication,
		SchemaAssessmentSubmission, SchemaFinancialGoal, SchemaPagination:
		return true
	default:
		return false
	}
}

// Options carries the sparse, request-scoped tunables consumed by a validator.
// Zero values mean "use the kind's default".
type Options struct {
	MinLength        int      `json:"minLength,omitempty"`
	MaxLength        int      `json:"maxLength,omitempty"`
	MaxSize          int64    `json:"maxSize,omitempty"`
	AllowedMIMETypes []string `json:"allowedMimeTypes,omitempty"`
}

// ValidationRequest is the single inbound unit of work. Immutable after
// construction.
type ValidationRequest struct {
	SchemaKind SchemaKind `json:"schemaKind"`
	Data       any        `json:"data"`
	Options    *Options   `json:"options,omitempty"`
}

// FieldError locates a single validation failure within the request data.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationOutcome is the only object a validator returns. Exactly one of
// SanitizedData / non-empty Errors is populated; never both.
type ValidationOutcome struct {
	Valid         bool         `json:"valid"`
	SanitizedData any          `json:"sanitizedData,omitempty"`
	Errors        []FieldError `json:"errors,omitempty"`
}

// Invalid constructs a failed outcome from the accumulated field errors.
func Invalid(errs []FieldError) ValidationOutcome {
	return ValidationOutcome{Valid: false, Errors: errs}
}

// Valid constructs a successful outcome carrying the normalized value.
func Valid(data any) ValidationOutcome {
	return ValidationOutcome{Valid: true, SanitizedData: data}
}

// SecurityCheckResult is the verdict of the pre-validation heuristics scan.
// Computed once per request, before any schema validation runs.
type SecurityCheckResult struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}
