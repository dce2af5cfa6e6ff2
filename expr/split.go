package expr

import "strings"

// Split cuts s at every sep that is outside parentheses and double quotes.
// Parts are trimmed and empty parts are dropped, so "a, pow(b,2) ," yields
// ["a", "pow(b,2)"].
func Split(s string, sep byte) []string {
	var (
		parts   []string
		depth   int
		quoted  bool
		escaped bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case quoted && ch == '\\':
			escaped = true
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '(' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			if depth > 0 {
				depth--
			}
		case ch == sep && depth == 0:
			parts = appendTrimmed(parts, s[start:i])
			start = i + 1
		}
	}

	return appendTrimmed(parts, s[start:])
}

func appendTrimmed(parts []string, part string) []string {
	if part = strings.TrimSpace(part); part != "" {
		parts = append(parts, part)
	}

	return parts
}
