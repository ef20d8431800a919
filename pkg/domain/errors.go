package domain

import "errors"

// Sentinel errors for the gateway's rejection taxonomy. Schema-validation
// failures are not in this list: they are successful calls with an invalid
// input, modeled as a ValidationOutcome rather than an error.
var (
	ErrMalformedInput    = errors.New("request body is not valid JSON")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrSecurityViolation = errors.New("request failed security checks")
	ErrUnsupportedSchema = errors.New("unsupported schema kind")
	ErrInternalFault     = errors.New("internal error")
)

// DomainError wraps a sentinel with a caller-facing message and structured
// detail. Unwrap keeps errors.Is classification against the sentinel working.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ErrorResponse defines the standard JSON error model returned by the gateway.
// It intentionally avoids exposing internal detail while providing a stable
// machine-readable code. Issues carries scanner issue codes when the request
// was rejected by the security heuristics scan.
// TraceID should carry the current OpenTelemetry trace identifier when available.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Code    string   `json:"code"`               // Machine-readable error code (e.g., RATE_LIMITED, SECURITY_VIOLATION)
	Error   string   `json:"error"`              // Human-readable message (safe for logs)
	Issues  []string `json:"issues,omitempty"`   // Scanner issue codes, if any
	TraceID string   `json:"trace_id,omitempty"` // Optional trace/correlation ID
}
