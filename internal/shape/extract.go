package shape

import (
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?is)```json\\b\\s*(.*?)\\s*```")

// extractCandidate returns the body of the first ```json fence, or the whole
// trimmed text when there is none.
func extractCandidate(raw string) string {
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// firstObject returns the first balanced top-level {...} in s. Braces inside
// JSON strings are ignored.
func firstObject(s string) (string, bool) {
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
