// Package waf implements the pre-validation security heuristics scan: a
// signature-based inspection of the raw serialized payload for known attack
// patterns, applied before any schema-specific validation runs.
package waf

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Severity represents the impact level of a scanner match.
type Severity string

const (
	// SeverityLow indicates informational detections.
	SeverityLow Severity = "low"
	// SeverityMedium indicates a suspicious but not critical match.
	SeverityMedium Severity = "medium"
	// SeverityHigh indicates a critical match that requires blocking.
	SeverityHigh Severity = "high"
)

// Issue codes emitted by the builtin rule set. Each triggered check produces
// its code at most once per scan, and all triggered codes are reported
// together rather than short-circuiting on the first match.
const (
	CodeSQLInjection    = "sql_injection_suspected"
	CodeXSS             = "xss_suspected"
	CodeCodeInjection   = "code_injection_suspected"
	CodePayloadTooLarge = "payload_too_large"
)

// MaxPayloadBytes is the hard ceiling on the serialized payload size.
const MaxPayloadBytes = 1 << 20 // 1 MiB

// Rule declares a detection rule for the scanner.
type Rule struct {
	Name     string
	Code     string
	Pattern  string
	Severity Severity
}

// Config bundles the rule set and limits for a Detector.
type Config struct {
	Rules           []Rule
	MaxPayloadBytes int
}

// Match represents a single detection produced by the scanner.
type Match struct {
	Rule     string
	Code     string
	Match    string
	Start    int
	End      int
	Severity Severity
}

// Report summarises matches and the overall verdict. Issues holds the
// distinct triggered codes in first-trigger order; Passed is true iff Issues
// is empty.
type Report struct {
	Matches []Match
	Issues  []string
	Passed  bool
}

type compiledRule struct {
	name     string
	code     string
	expr     *regexp.Regexp
	severity Severity
}

// Detector evaluates serialized payloads against the configured rule set.
// Immutable after construction and safe for concurrent use.
type Detector struct {
	rules      []compiledRule
	maxPayload int
}

// NewDetector constructs a scanner using the provided configuration.
func NewDetector(cfg Config) (*Detector, error) {
	maxPayload := cfg.MaxPayloadBytes
	if maxPayload <= 0 {
		maxPayload = MaxPayloadBytes
	}

	compiled := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return nil, fmt.Errorf("waf: rule name is required")
		}
		code := strings.TrimSpace(rule.Code)
		if code == "" {
			return nil, fmt.Errorf("waf: issue code is required for rule %s", name)
		}
		pattern := strings.TrimSpace(rule.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("waf: pattern is required for rule %s", name)
		}
		severity := rule.Severity
		if severity == "" {
			severity = SeverityMedium
		}
		if !isValidSeverity(severity) {
			return nil, fmt.Errorf("waf: invalid severity %q for rule %s", severity, name)
		}
		expr, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("waf: invalid pattern for rule %s: %w", name, err)
		}
		compiled = append(compiled, compiledRule{
			name:     name,
			code:     code,
			expr:     expr,
			severity: severity,
		})
	}

	return &Detector{rules: compiled, maxPayload: maxPayload}, nil
}

// NewDefaultDetector constructs a scanner over the builtin rule set.
func NewDefaultDetector() *Detector {
	detector, err := NewDetector(Config{Rules: GlobalRegistry().Clone()})
	if err != nil {
		// Builtin rules are compile-time constants; a failure here is a bug.
		panic(fmt.Sprintf("waf: builtin rules failed to compile: %v", err))
	}
	return detector
}

// MaxPayload returns the configured payload size ceiling in bytes.
func (d *Detector) MaxPayload() int {
	return d.maxPayload
}

// Evaluate scans the serialized payload and returns a report containing every
// triggered issue code. The payload size ceiling is checked first but does not
// suppress pattern findings: a request can be both oversized and hostile.
func (d *Detector) Evaluate(ctx context.Context, payload []byte) (Report, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
	}

	var matches []Match
	seen := make(map[string]struct{})
	var issues []string

	trigger := func(code string) {
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		issues = append(issues, code)
	}

	if len(payload) > d.maxPayload {
		trigger(CodePayloadTooLarge)
	}

	for _, rule := range d.rules {
		indices := rule.expr.FindAllIndex(payload, -1)
		for _, idx := range indices {
			matches = append(matches, Match{
				Rule:     rule.name,
				Code:     rule.code,
				Match:    string(payload[idx[0]:idx[1]]),
				Start:    idx[0],
				End:      idx[1],
				Severity: rule.severity,
			})
			trigger(rule.code)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start == matches[j].Start {
			return matches[i].End < matches[j].End
		}
		return matches[i].Start < matches[j].Start
	})

	return Report{Matches: matches, Issues: issues, Passed: len(issues) == 0}, nil
}

func isValidSeverity(severity Severity) bool {
	switch severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}
