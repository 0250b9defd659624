// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONArray reports that a response holds no well-formed JSON array.
var ErrNoJSONArray = errors.New("no JSON array found in response")

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the fence line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " [{") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// JSONArrays returns every top-level well-formed JSON array in text, in order of
// appearance. Markdown code fences are removed first.
func JSONArrays(text string) []string {
	text = CleanJSONBlock(text)

	var arrays []string
	for pos := 0; pos < len(text); {
		offset := strings.IndexByte(text[pos:], '[')
		if offset < 0 {
			break
		}
		start := pos + offset

		if end := matchBracket(text, start); end > start {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				arrays = append(arrays, candidate)
				pos = end + 1
				continue
			}
		}
		pos = start + 1
	}
	return arrays
}

// matchBracket returns the index of the bracket closing the one at start, or -1.
func matchBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				if ch != ']' {
					return -1
				}
				return i
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}
