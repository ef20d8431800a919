// Package gateway sequences the request validation lifecycle: rate limiting,
// payload deserialization, the security heuristics scan, schema validation,
// sanitization and XSS neutralization. A request terminates at the first
// failing stage; no later stage ever sees data that failed an earlier one.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meritpath/secgate/internal/governance"
	"github.com/meritpath/secgate/pkg/audit"
	"github.com/meritpath/secgate/pkg/domain"
	"github.com/meritpath/secgate/pkg/policy/sanitize"
	"github.com/meritpath/secgate/pkg/policy/waf"
	"github.com/meritpath/secgate/pkg/schema"
	"github.com/meritpath/secgate/pkg/telemetry"
)

// Stage names the lifecycle steps, terminal at the first failure.
type Stage string

const (
	StageRateLimit Stage = "rate_limit"
	StageDecode    Stage = "decode"
	StageScan      Stage = "scan"
	StageValidate  Stage = "validate"
	StageSanitize  Stage = "sanitize"
	StageRespond   Stage = "respond"
)

// Machine-readable rejection codes surfaced to callers.
const (
	CodeMalformedInput    = "MALFORMED_INPUT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeSecurityViolation = "SECURITY_VIOLATION"
	CodeUnsupportedSchema = "UNSUPPORTED_SCHEMA"
	CodeInternalFault     = "INTERNAL_FAULT"
)

// SuccessResponse is returned when validation passed. Validated carries the
// pre-sanitization value for traceability.
type SuccessResponse struct {
	Valid      bool              `json:"valid"`
	Data       any               `json:"data"`
	Validated  any               `json:"validated,omitempty"`
	SchemaKind domain.SchemaKind `json:"schemaKind"`
}

// SchemaFailureResponse is returned when the call succeeded but the input is
// invalid: HTTP 200 with the full field-error list.
type SchemaFailureResponse struct {
	Valid      bool                `json:"valid"`
	Errors     []domain.FieldError `json:"errors"`
	SchemaKind domain.SchemaKind   `json:"schemaKind"`
}

// Result is the uniform outcome envelope built by the orchestrator. Body is
// the JSON-serializable response payload, Status the HTTP-equivalent class.
type Result struct {
	Status int
	Stage  Stage
	Body   any
}

// Config assembles the gateway's collaborators.
type Config struct {
	Limiter  *governance.RateLimiter
	Detector *waf.Detector
	Auditor  *audit.Dispatcher
	Logger   *slog.Logger
	Metrics  *Metrics
	Now      func() time.Time
}

// Gateway is the stateless per-request orchestrator. All shared state lives
// in the rate limiter; everything else is immutable after construction.
type Gateway struct {
	limiter  *governance.RateLimiter
	detector *waf.Detector
	auditor  *audit.Dispatcher
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
	tracer   trace.Tracer
}

// New constructs a gateway. Nil collaborators get safe defaults except the
// limiter, which is required.
func New(cfg Config) *Gateway {
	if cfg.Limiter == nil {
		panic("gateway: rate limiter is required")
	}
	detector := cfg.Detector
	if detector == nil {
		detector = waf.NewDefaultDetector()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Gateway{
		limiter:  cfg.Limiter,
		detector: detector,
		auditor:  cfg.Auditor,
		logger:   logger,
		metrics:  metrics,
		now:      now,
		tracer:   otel.Tracer("secgate.gateway"),
	}
}

// Limiter exposes the rate limiter for response-header bookkeeping.
func (g *Gateway) Limiter() *governance.RateLimiter {
	return g.limiter
}

// Process runs the full lifecycle for one serialized request body. clientID
// is the caller's network identity; an empty value falls into the shared
// unidentified bucket.
func (g *Gateway) Process(ctx context.Context, clientID string, body []byte) Result {
	started := g.now()
	ctx, span := g.tracer.Start(ctx, "gateway.process")
	defer span.End()

	result := g.process(ctx, clientID, body)

	span.SetAttributes(
		attribute.String("gateway.stage", string(result.Stage)),
		attribute.Int("gateway.status", result.Status),
	)
	g.metrics.ObserveRequest(string(result.Stage), result.Status, g.now().Sub(started))
	telemetry.RecordStage(ctx, telemetry.StageMetrics{
		Stage:    string(result.Stage),
		Status:   result.Status,
		Duration: g.now().Sub(started),
	})

	return result
}

func (g *Gateway) process(ctx context.Context, clientID string, body []byte) Result {
	if !g.limiter.AllowContext(ctx, clientID, g.now()) {
		// Denial is a first-class negative result, not an error.
		g.metrics.RateLimited()
		g.logger.InfoContext(ctx, "request rate limited", "client_id", clientID)
		return reject(StageRateLimit, domain.ErrRateLimited, nil)
	}

	// An oversized body may arrive truncated at the read cap, which would
	// misclassify it as malformed JSON; classify it through the scanner
	// instead so the caller sees payload_too_large.
	if len(body) > g.detector.MaxPayload() {
		report, err := g.detector.Evaluate(ctx, body)
		if err != nil {
			return g.internalFault(ctx, err)
		}
		g.metrics.SecurityBlocked(report.Issues)
		g.logger.WarnContext(ctx, "oversized payload rejected", "client_id", clientID, "bytes", len(body))
		g.emitAudit(clientID, "", report)
		return reject(StageScan, securityViolation(report), report.Issues)
	}

	var req domain.ValidationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		g.logger.InfoContext(ctx, "malformed request body", "client_id", clientID, "error", err)
		return reject(StageDecode, domain.ErrMalformedInput, nil)
	}

	report, err := g.detector.Evaluate(ctx, body)
	if err != nil {
		// Context cancellation is the only error path here.
		return g.internalFault(ctx, err)
	}
	if !report.Passed {
		g.metrics.SecurityBlocked(report.Issues)
		g.logger.WarnContext(ctx, "security scan failed",
			"client_id", clientID,
			"issues", report.Issues,
			"matches", len(report.Matches),
		)
		g.emitAudit(clientID, req.SchemaKind, report)
		return reject(StageScan, securityViolation(report), report.Issues)
	}

	validator, err := schema.Build(req.SchemaKind, req.Options)
	if err != nil {
		g.logger.InfoContext(ctx, "unsupported schema kind", "client_id", clientID, "schema_kind", string(req.SchemaKind))
		// Build's error carries the caller-supplied kind; the response keeps
		// the bare sentinel message.
		return reject(StageValidate, domain.ErrUnsupportedSchema, nil)
	}

	outcome := validator.Validate(req.Data)
	if !outcome.Valid {
		g.metrics.SchemaRejected(string(req.SchemaKind))
		// Caller-correctable: the call itself succeeded, the input did not.
		return Result{
			Status: http.StatusOK,
			Stage:  StageValidate,
			Body: SchemaFailureResponse{
				Valid:      false,
				Errors:     outcome.Errors,
				SchemaKind: req.SchemaKind,
			},
		}
	}

	cleaned := sanitize.Clean(outcome.SanitizedData)
	cleaned = sanitize.Neutralize(cleaned)

	return Result{
		Status: http.StatusOK,
		Stage:  StageRespond,
		Body: SuccessResponse{
			Valid:      true,
			Data:       cleaned,
			Validated:  outcome.SanitizedData,
			SchemaKind: req.SchemaKind,
		},
	}
}

// emitAudit forwards a security violation to the audit sink with severity
// high, independent of the HTTP outcome pathway. Best-effort by construction.
func (g *Gateway) emitAudit(clientID string, kind domain.SchemaKind, report waf.Report) {
	if g.auditor == nil {
		return
	}

	details := map[string]any{
		"issues": report.Issues,
	}
	if len(report.Matches) > 0 {
		rules := make([]string, 0, len(report.Matches))
		for _, m := range report.Matches {
			rules = append(rules, m.Rule)
		}
		details["rules"] = rules
	}

	g.auditor.Record(audit.NewRecord(
		"security_scan_blocked",
		string(kind),
		clientID,
		"security",
		domain.AuditSeverityHigh,
		details,
	))
}

// internalFault returns the generic error envelope. Security and schema
// detail never crosses into this category; the cause stays in the log.
func (g *Gateway) internalFault(ctx context.Context, err error) Result {
	g.logger.ErrorContext(ctx, "internal fault", "error", err)
	g.metrics.InternalFault()
	return reject(StageRespond, domain.ErrInternalFault, nil)
}

func securityViolation(report waf.Report) error {
	return &domain.DomainError{
		Err:     domain.ErrSecurityViolation,
		Details: map[string]any{"issues": report.Issues},
	}
}

// classify maps a domain error to its transport status and machine code.
// Anything unrecognized lands in the internal-fault class so no detail leaks.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest, CodeMalformedInput
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, domain.ErrSecurityViolation):
		return http.StatusBadRequest, CodeSecurityViolation
	case errors.Is(err, domain.ErrUnsupportedSchema):
		return http.StatusBadRequest, CodeUnsupportedSchema
	default:
		return http.StatusInternalServerError, CodeInternalFault
	}
}

func reject(stage Stage, err error, issues []string) Result {
	return rejectStatus(0, stage, err, issues...)
}

// rejectStatus is for transport edges whose HTTP status does not follow from
// the sentinel classification (e.g. 405); status 0 means use the classified one.
func rejectStatus(status int, stage Stage, err error, issues ...string) Result {
	classified, code := classify(err)
	if status == 0 {
		status = classified
	}
	return Result{
		Status: status,
		Stage:  stage,
		Body: domain.ErrorResponse{
			Success: false,
			Code:    code,
			Error:   err.Error(),
			Issues:  issues,
		},
	}
}
