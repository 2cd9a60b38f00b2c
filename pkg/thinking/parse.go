package thinking

import (
	"encoding/json"
	"strings"
)

// parsed is a tagged decode result: either a validated value or an explicit
// failure every consumer must handle. Fallback paths are first-class code,
// not exception handlers.
type parsed[T any] struct {
	Value T
	OK    bool
}

// extractJSONBlock returns the first brace-delimited block in raw, honoring
// ```json fences when present. Returns "" when no block exists.
func extractJSONBlock(raw string) string {
	if i := strings.Index(raw, "```json"); i != -1 {
		rest := raw[i+len("```json"):]
		if j := strings.Index(rest, "```"); j != -1 {
			raw = rest[:j]
		}
	}

	start := strings.Index(raw, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// decodeJSON extracts the first brace-delimited block and unmarshals it into
// T. The failure variant carries the zero value.
func decodeJSON[T any](raw string) parsed[T] {
	var out parsed[T]
	block := extractJSONBlock(raw)
	if block == "" {
		return out
	}
	if err := json.Unmarshal([]byte(block), &out.Value); err != nil {
		return parsed[T]{}
	}
	out.OK = true
	return out
}

// nonEmptyLines splits raw into trimmed, non-empty lines, capped at max.
func nonEmptyLines(raw string, max int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
