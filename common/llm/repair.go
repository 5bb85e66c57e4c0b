package llm

import (
	"regexp"
	"strings"
)

var (
	// fencePattern matches a markdown code block, closed or cut off mid-stream.
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\n?(.*?)(?:```|$)")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls the first JSON object or array out of completion text. Markdown
// fences and surrounding prose are dropped. A value cut off before its closing
// delimiter is returned as-is up to the end of the text so RepairJSON can finish it.
// Returns "" when the text holds no '{' or '['.
func ExtractJSON(content string) string {
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 && strings.ContainsAny(m[1], "{[") {
		content = m[1]
	}

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}

	end := valueEnd(content[start:])
	if end < 0 {
		return cleanJSON(strings.TrimSpace(content[start:]))
	}
	return cleanJSON(content[start : start+end])
}

// valueEnd returns the length of the balanced value at the start of s, or -1 if
// s ends before it closes.
func valueEnd(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// RepairJSON closes a truncated JSON value: an open string gets its quote, a
// dangling comma is dropped, and every unmatched '{' or '[' gets its closer in
// nesting order. Balanced text comes back unchanged, so repairing twice is the
// same as repairing once. Text with stray or mismatched closers is returned as-is.
func RepairJSON(text string) string {
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return text
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) == 0 && !inString {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(stack) + 1)
	if inString {
		if escaped {
			text = text[:len(text)-1]
		}
		b.WriteString(text)
		b.WriteByte('"')
	} else {
		trimmed := strings.TrimRight(text, " \t\r\n")
		b.WriteString(strings.TrimSuffix(trimmed, ","))
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// cleanJSON removes trailing commas before } or ].
func cleanJSON(raw string) string {
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}
