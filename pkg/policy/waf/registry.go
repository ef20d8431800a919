package waf

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maintains a threadsafe catalogue of reusable scanner rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register inserts or replaces a rule definition.
func (r *Registry) Register(rule Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("waf: registry rule name is required")
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		return fmt.Errorf("waf: registry rule %s missing pattern", rule.Name)
	}
	if strings.TrimSpace(rule.Code) == "" {
		return fmt.Errorf("waf: registry rule %s missing issue code", rule.Name)
	}

	key := strings.ToLower(rule.Name)

	r.mu.Lock()
	if _, exists := r.rules[key]; !exists {
		r.order = append(r.order, key)
	}
	r.rules[key] = rule
	r.mu.Unlock()
	return nil
}

// RegisterAll adds multiple rules.
func (r *Registry) RegisterAll(rules []Rule) error {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// Resolve fetches a rule definition by identifier.
func (r *Registry) Resolve(id string) (Rule, bool) {
	if id == "" {
		return Rule{}, false
	}

	key := strings.ToLower(id)

	r.mu.RLock()
	rule, ok := r.rules[key]
	r.mu.RUnlock()
	if !ok {
		return Rule{}, false
	}
	return rule, true
}

// Clone returns a snapshot of all registered rules in registration order.
func (r *Registry) Clone() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Rule, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.rules[key])
	}
	return result
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// GlobalRegistry exposes the process-wide registry populated with builtin rules.
func GlobalRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = newRegistryWithBuiltins()
	})
	return defaultRegistry
}

// newRegistryWithBuiltins seeds the registry with the perimeter signatures.
// These are deliberately coarse: a low-false-negative layer that accepts some
// false positives, not a substitute for schema validation. Patterns match the
// exact signature substrings only, so near-miss prose ("DROP by", "DELETE my
// draft FROM") passes untouched.
func newRegistryWithBuiltins() *Registry {
	r := NewRegistry()
	_ = r.RegisterAll([]Rule{
		{
			Name:     "sql.drop-table",
			Code:     CodeSQLInjection,
			Pattern:  `(?i)\bdrop\s+table\b`,
			Severity: SeverityHigh,
		},
		{
			Name:     "sql.delete-from",
			Code:     CodeSQLInjection,
			Pattern:  `(?i)\bdelete\s+from\b`,
			Severity: SeverityHigh,
		},
		{
			Name:     "sql.truncate-table",
			Code:     CodeSQLInjection,
			Pattern:  `(?i)\btruncate\s+table\b`,
			Severity: SeverityHigh,
		},
		{
			Name:     "xss.script-tag",
			Code:     CodeXSS,
			Pattern:  `(?i)<\s*script\b`,
			Severity: SeverityHigh,
		},
		{
			Name:     "xss.iframe-tag",
			Code:     CodeXSS,
			Pattern:  `(?i)<\s*iframe\b`,
			Severity: SeverityHigh,
		},
		{
			Name:     "xss.javascript-scheme",
			Code:     CodeXSS,
			Pattern:  `(?i)javascript\s*:`,
			Severity: SeverityHigh,
		},
		{
			Name:     "code.eval-call",
			Code:     CodeCodeInjection,
			Pattern:  `\beval\s*\(`,
			Severity: SeverityHigh,
		},
		{
			Name:     "code.function-constructor",
			Code:     CodeCodeInjection,
			Pattern:  `\bFunction\s*\(`,
			Severity: SeverityHigh,
		},
	})
	return r
}
