package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/meritpath/secgate/internal/governance"
	"github.com/meritpath/secgate/pkg/domain"
	"github.com/meritpath/secgate/pkg/policy/waf"
)

// Metadata header constants for client identification.
const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
	HeaderRequestID    = "X-Request-ID"
)

type requestIDContextKey struct{}

// Handler exposes the gateway over HTTP. POST bodies are buffered up to the
// scanner's payload ceiling and handed to the orchestrator; every response is
// a JSON envelope with rate-limit headers attached.
type Handler struct {
	gateway *Gateway
	logger  *slog.Logger
}

// HandlerConfig holds configuration for creating a Handler.
type HandlerConfig struct {
	Gateway *Gateway
	Logger  *slog.Logger
}

// NewHandler constructs the http.Handler for the validation endpoint.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Gateway == nil {
		panic("gateway: gateway is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{gateway: cfg.Gateway, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Wrap ResponseWriter to prevent superfluous WriteHeader calls
	w = &statusRecorder{ResponseWriter: w}

	ctx := r.Context()
	requestID := extractRequestID(r)
	ctx = context.WithValue(ctx, requestIDContextKey{}, requestID)
	r = r.WithContext(ctx)
	w.Header().Set(HeaderRequestID, requestID)

	// Unexpected panics become a generic internal fault; no internal detail
	// leaks to the caller.
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "panic while handling request",
				"request_id", requestID,
				"panic", rec,
			)
			h.gateway.metrics.InternalFault()
			h.writeResult(ctx, w, reject(StageRespond, domain.ErrInternalFault, nil))
		}
	}()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeResult(ctx, w, rejectStatus(http.StatusMethodNotAllowed, StageDecode, &domain.DomainError{
			Err:     domain.ErrMalformedInput,
			Message: "method not allowed",
		}))
		return
	}

	clientID := ClientIdentifier(r)

	h.logger.DebugContext(ctx, "received validation request",
		"request_id", requestID,
		"client_id", clientID,
		"path", r.URL.Path,
	)

	// Cap reads slightly above the scanner ceiling so oversized payloads are
	// classified by the scanner rather than failing with a transport error.
	body, err := io.ReadAll(io.LimitReader(r.Body, waf.MaxPayloadBytes+1))
	if err != nil {
		h.writeResult(ctx, w, reject(StageDecode, &domain.DomainError{
			Err:     domain.ErrMalformedInput,
			Message: "failed to read request body",
		}, nil))
		return
	}

	result := h.gateway.Process(ctx, clientID, body)

	now := time.Now()
	cfg := h.gateway.limiter.Config()
	governance.WriteRateLimitHeaders(w,
		cfg.MaxRequests,
		h.gateway.limiter.Remaining(clientID, now),
		now.Add(cfg.Window),
	)

	h.writeResult(ctx, w, result)
}

func (h *Handler) writeResult(ctx context.Context, w http.ResponseWriter, result Result) {
	body := result.Body

	// Stamp the trace ID onto gateway-level rejections for correlation.
	if errBody, ok := body.(domain.ErrorResponse); ok {
		if span := trace.SpanFromContext(ctx); span != nil {
			if sc := span.SpanContext(); sc.IsValid() {
				errBody.TraceID = sc.TraceID().String()
			}
		}
		body = errBody
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// ClientIdentifier resolves the caller's network identity for rate limiting.
// Precedence: first X-Forwarded-For hop, X-Real-IP, then the connection's
// remote address. Callers that cannot be identified share one bucket.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get(HeaderRealIP)); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return governance.UnknownClientKey
}

// extractRequestID returns the caller-supplied request ID or generates one.
func extractRequestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	return uuid.New().String()
}

// RequestIDFromContext extracts the request ID from the request context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return id
	}
	return ""
}

// statusRecorder wraps http.ResponseWriter to prevent multiple WriteHeader calls.
type statusRecorder struct {
	http.ResponseWriter
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.ResponseWriter.WriteHeader(code)
		r.wroteHeader = true
	}
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
