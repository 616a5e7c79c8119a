package placeholder

import (
	"regexp"
	"sort"
	"strings"
)

// Replacements maps a placeholder name to its replacement value.
type Replacements map[string]string

// tokenRegex matches {{NAME}} tokens.
// Group 1: token name.
var tokenRegex = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Token returns the literal template token for key.
//
//	Token("CLUSTER_FQN") // "{{CLUSTER_FQN}}"
func Token(key string) string {
	return "{{" + key + "}}"
}

// Substitute replaces every literal {{KEY}} in content with r[KEY].
//
// Behavior:
//   - all occurrences of a token are replaced
//   - tokens for keys not in r are kept as-is
//   - replacement values are inserted verbatim and never re-scanned, so a
//     value containing "{{OTHER}}" stays literal
//
// Examples:
//
//	Substitute("cluster: {{CLUSTER_FQN}}", Replacements{"CLUSTER_FQN": "c1"})
//	// Returns: "cluster: c1"
//
//	Substitute("{{MISSING}}", Replacements{})
//	// Returns: "{{MISSING}}"
func Substitute(content string, r Replacements) string {
	if len(r) == 0 || content == "" {
		return content
	}

	pairs := make([]string, 0, len(r)*2)
	for _, key := range r.Keys() {
		pairs = append(pairs, Token(key), r[key])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// Unresolved returns the sorted, de-duplicated names of {{NAME}} tokens left
// in content.
func Unresolved(content string) []string {
	matches := tokenRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

// Keys returns the placeholder names in sorted order.
func (r Replacements) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Redacted returns a copy of r with secret values masked, for logging.
func (r Replacements) Redacted() Replacements {
	out := make(Replacements, len(r))
	for k, v := range r {
		if IsSecret(k) && v != "" {
			out[k] = "****"
			continue
		}
		out[k] = v
	}
	return out
}
