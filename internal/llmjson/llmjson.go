// Package llmjson decodes JSON that language models wrap in prose or code fences.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// Decode unmarshals the JSON object or array embedded in content into target.
// Failures wrap domain.ErrMalformedResponse.
func Decode(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: empty reply", domain.ErrMalformedResponse)
	}

	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}

	extracted := extract(trimmed)
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("%w: %v (reply: %s)", domain.ErrMalformedResponse, err, Snippet(trimmed))
	}
	return nil
}

// extract strips a code fence and cuts to the outermost braces or brackets.
func extract(content string) string {
	s := stripFence(content)
	if s == "" || s[0] == '{' || s[0] == '[' {
		return s
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

func stripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimLeft(s[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// Snippet flattens whitespace and truncates text for error messages.
func Snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if r := []rune(clean); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return clean
}
