// Package coerce turns free-text model responses into well-formed JSON
// records. Models frequently wrap payloads in markdown fences or trailing
// prose; the extraction order here tolerates both.
package coerce

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	braceSpan   = regexp.MustCompile(`(?s)\{.*\}`)
)

// CoercionError reports that no JSON object could be recovered from a
// response and no fallback was supplied.
type CoercionError struct {
	Snippet string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("coerce: no JSON object in response: %q", e.Snippet)
}

// Extract parses a JSON object out of raw model output. Attempts, first
// success wins: the whole text, a fenced code block, the first balanced-
// looking brace span. Call sites inside pipelines should prefer ExtractWith
// so a malformed response can never fail a step.
func Extract(text string) (map[string]interface{}, error) {
	if out, ok := tryParse(text); ok {
		return out, nil
	}
	if match := fencedBlock.FindStringSubmatch(text); match != nil {
		if out, ok := tryParse(match[1]); ok {
			return out, nil
		}
	}
	if span := braceSpan.FindString(text); span != "" {
		if out, ok := tryParse(span); ok {
			return out, nil
		}
	}
	snippet := strings.TrimSpace(text)
	if len(snippet) > 120 {
		snippet = snippet[:120]
	}
	return nil, &CoercionError{Snippet: snippet}
}

// ExtractWith behaves like Extract but returns the fallback record when no
// JSON can be recovered. It never fails: fallback records are constructed to
// match the shape the caller reads back.
func ExtractWith(text string, fallback map[string]interface{}) map[string]interface{} {
	out, err := Extract(text)
	if err != nil {
		return fallback
	}
	return out
}

func tryParse(text string) (map[string]interface{}, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, false
	}
	return out, true
}

// String reads a string field with a default.
func String(record map[string]interface{}, key, fallback string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return fallback
}

// Float reads a numeric field with a default. JSON numbers decode as
// float64; integers stored by fallback records are accepted too.
func Float(record map[string]interface{}, key string, fallback float64) float64 {
	switch v := record[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

// Int reads an integer field with a default.
func Int(record map[string]interface{}, key string, fallback int) int {
	return int(Float(record, key, float64(fallback)))
}

// Strings reads a list-of-strings field, skipping non-string elements.
func Strings(record map[string]interface{}, key string) []string {
	raw, ok := record[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Records reads a list-of-objects field, skipping non-object elements.
func Records(record map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := record[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// Record reads a nested object field.
func Record(record map[string]interface{}, key string) map[string]interface{} {
	if m, ok := record[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}
