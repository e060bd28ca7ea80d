package recon

import (
	"regexp"
	"strings"
)

// presetHeaderPattern matches the structured preset header saved views prefix
// onto their predicate fragment: /*JSON:{...}*/.
var presetHeaderPattern = regexp.MustCompile(`^\s*/\*JSON:.*?\*/`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// deniedTokens are the structural SQL keywords that disqualify a whole
// fragment. This gate catches accidents and casual injection, not a
// determined attacker; fragments come from saved views authored by
// authenticated operators and are treated as semi-trusted.
var deniedTokens = []string{
	"union", "select", "insert", "delete", "update", "drop", "alter", "exec",
}

var deniedTokenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(deniedTokens, "|") + `)\b`)

// NormalizeFragment canonicalizes a caller-supplied filter fragment: strips
// the preset header, a leading WHERE, redundant outer parenthesization, and
// collapses whitespace. The normalized text serves as both the cache key and
// the query fragment, so two spellings of the same filter share a cache entry.
func NormalizeFragment(raw string) string {
	s := presetHeaderPattern.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	if len(s) >= 6 && strings.EqualFold(s[:6], "WHERE ") {
		s = strings.TrimSpace(s[6:])
	}
	for isRedundantlyParenthesized(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// isRedundantlyParenthesized reports whether the outermost parens wrap the
// whole fragment, as in "((a = 1))" but not "(a = 1) OR (b = 2)".
func isRedundantlyParenthesized(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// SanitizeFragment normalizes the fragment and vets it against the structural
// denylist. A rejected fragment comes back empty with ok=false and the
// offending token; callers log it and run the query as if no filter were
// supplied (fail open to "no extra filter", never to an error).
func SanitizeFragment(raw string) (fragment string, ok bool, offendingToken string) {
	s := NormalizeFragment(raw)
	if s == "" {
		return "", true, ""
	}
	if i := strings.IndexAny(s, ";"); i >= 0 {
		return "", false, ";"
	}
	if strings.Contains(s, "--") {
		return "", false, "--"
	}
	if strings.Contains(s, "/*") {
		return "", false, "/*"
	}
	if m := deniedTokenPattern.FindString(s); m != "" {
		return "", false, strings.ToLower(m)
	}
	return s, true, ""
}
