// Package jsonx extracts a single JSON object from noisy language-model
// output: code fences, surrounding prose, single-quoted or bare keys.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoObject means no balanced {...} span exists in the input.
	ErrNoObject = errors.New("no object found")
	// ErrRootNotObject means the extracted value is not a keyed map.
	ErrRootNotObject = errors.New("root is not an object")
	// ErrKeysNotString means a key position holds a non-string token.
	ErrKeysNotString = errors.New("object key is not a string")
)

// Extract returns the first object embedded in text. Strict JSON is
// tried first; on failure a permissive pass re-quotes single-quoted
// strings and bare identifier keys. Deterministic and side-effect free.
func Extract(text string) (map[string]any, error) {
	text = stripFences(strings.TrimSpace(text))
	start, end, ok := findSpan(text)
	if !ok {
		return nil, ErrNoObject
	}
	chunk := text[start:end]

	var root any
	if err := json.Unmarshal([]byte(chunk), &root); err != nil {
		normalized, nerr := normalize(chunk)
		if nerr != nil {
			return nil, nerr
		}
		if err := json.Unmarshal([]byte(normalized), &root); err != nil {
			return nil, fmt.Errorf("parse object: %w", err)
		}
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, ErrRootNotObject
	}
	return obj, nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Drop the opening fence line (possibly "```json") and a trailing
	// fence if present.
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// findSpan locates the first balanced brace pair, tracking double-quoted
// strings with backslash escapes.
func findSpan(text string) (int, int, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return 0, 0, false
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}

// normalize rewrites near-JSON into strict JSON: single-quoted strings
// become double-quoted, bare identifier keys are quoted. A numeric token
// in key position is rejected.
func normalize(chunk string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(chunk) {
		ch := chunk[i]
		switch {
		case ch == '"':
			j, err := copyDoubleQuoted(&out, chunk, i)
			if err != nil {
				return "", err
			}
			i = j
		case ch == '\'':
			j, err := rewriteSingleQuoted(&out, chunk, i)
			if err != nil {
				return "", err
			}
			i = j
		case isIdentStart(ch):
			j := i
			for j < len(chunk) && isIdentPart(chunk[j]) {
				j++
			}
			word := chunk[i:j]
			switch word {
			case "true", "false", "null":
				out.WriteString(word)
			default:
				// Bare identifier: quote it so {action: done} survives.
				out.WriteByte('"')
				out.WriteString(word)
				out.WriteByte('"')
			}
			i = j
		case ch >= '0' && ch <= '9' || ch == '-':
			j := i
			for j < len(chunk) && (chunk[j] == '-' || chunk[j] == '+' || chunk[j] == '.' ||
				chunk[j] == 'e' || chunk[j] == 'E' || (chunk[j] >= '0' && chunk[j] <= '9')) {
				j++
			}
			if nextNonSpace(chunk, j) == ':' {
				return "", ErrKeysNotString
			}
			out.WriteString(chunk[i:j])
			i = j
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String(), nil
}

func copyDoubleQuoted(out *strings.Builder, chunk string, start int) (int, error) {
	out.WriteByte('"')
	i := start + 1
	for i < len(chunk) {
		ch := chunk[i]
		if ch == '\\' && i+1 < len(chunk) {
			out.WriteByte(ch)
			out.WriteByte(chunk[i+1])
			i += 2
			continue
		}
		out.WriteByte(ch)
		i++
		if ch == '"' {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated string")
}

func rewriteSingleQuoted(out *strings.Builder, chunk string, start int) (int, error) {
	out.WriteByte('"')
	i := start + 1
	for i < len(chunk) {
		ch := chunk[i]
		switch ch {
		case '\\':
			if i+1 < len(chunk) {
				next := chunk[i+1]
				if next == '\'' {
					out.WriteByte('\'')
				} else {
					out.WriteByte('\\')
					out.WriteByte(next)
				}
				i += 2
				continue
			}
			return 0, fmt.Errorf("unterminated string")
		case '\'':
			out.WriteByte('"')
			return i + 1, nil
		case '"':
			out.WriteString(`\"`)
			i++
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return 0, fmt.Errorf("unterminated string")
}

func nextNonSpace(chunk string, i int) byte {
	for ; i < len(chunk); i++ {
		switch chunk[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return chunk[i]
		}
	}
	return 0
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
