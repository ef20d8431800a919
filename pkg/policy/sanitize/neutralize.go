package sanitize

import "regexp"

// The neutralization rule set deliberately overlaps with — but is not
// identical to — the perimeter scanner's signatures: the scanner inspects the
// original serialized payload, while this pass protects the final output that
// callers will persist or render.
type neutralizeRule struct {
	name string
	expr *regexp.Regexp
}

var neutralizeRules = []neutralizeRule{
	{
		name: "xss.script-body",
		expr: regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`),
	},
	{
		name: "xss.iframe-body",
		expr: regexp.MustCompile(`(?is)<\s*iframe\b[^>]*>.*?<\s*/\s*iframe\s*>`),
	},
	{
		name: "xss.object-body",
		expr: regexp.MustCompile(`(?is)<\s*object\b[^>]*>.*?<\s*/\s*object\s*>`),
	},
	{
		name: "xss.embed-body",
		expr: regexp.MustCompile(`(?is)<\s*embed\b[^>]*>.*?<\s*/\s*embed\s*>`),
	},
	{
		name: "xss.dangling-tag",
		expr: regexp.MustCompile(`(?i)<\s*/?\s*(?:script|iframe|object|embed)\b[^>]*>`),
	},
	{
		name: "xss.event-handler",
		expr: regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`),
	},
	{
		name: "xss.javascript-scheme",
		expr: regexp.MustCompile(`(?i)javascript\s*:`),
	},
}

// maxNeutralizePasses bounds the fixpoint loop; removal can splice two
// fragments into a new signature, so a single pass is not sufficient.
const maxNeutralizePasses = 10

// Neutralize walks an already-sanitized structure and removes script, iframe,
// object and embed tag bodies, inline event-handler attributes, and
// javascript: URIs from any remaining string content.
func Neutralize(value any) any {
	switch v := value.(type) {
	case string:
		return NeutralizeString(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Neutralize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Neutralize(item)
		}
		return out
	default:
		return value
	}
}

// NeutralizeString strips dangerous markup from a single string. Replacement
// repeats until the value is stable so that removals cannot reassemble a
// signature that survives the pass.
func NeutralizeString(s string) string {
	for pass := 0; pass < maxNeutralizePasses; pass++ {
		before := s
		for _, rule := range neutralizeRules {
			s = rule.expr.ReplaceAllString(s, "")
		}
		if s == before {
			break
		}
	}
	return s
}
