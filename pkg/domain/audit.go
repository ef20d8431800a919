package domain

import "time"

// AuditSeverity grades the impact of an audited event.
type AuditSeverity string

const (
	// AuditSeverityLow marks routine, informational events.
	AuditSeverityLow AuditSeverity = "low"
	// AuditSeverityMedium marks suspicious but non-critical events.
	AuditSeverityMedium AuditSeverity = "medium"
	// AuditSeverityHigh marks events that indicate hostile input.
	AuditSeverityHigh AuditSeverity = "high"
)

// AuditRecord is emitted to the external audit sink to capture
// security-relevant actions. Write-once; the gateway never reads it back.
// Keep it transport-agnostic so sinks can fan out.
type AuditRecord struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Details   map[string]any `json:"details,omitempty"`
	ClientID  string         `json:"clientId"`
	Severity  AuditSeverity  `json:"severity"`
	Category  string         `json:"category"`
	CreatedAt time.Time      `json:"createdAt"`
}
