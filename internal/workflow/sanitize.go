package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sanitizeResponse normalizes raw reasoning-adapter output into a candidate
// JSON object string: trims whitespace, strips fenced code-block markers,
// slices to the outermost {...} span, and collapses all whitespace runs to
// single spaces. Idempotent on already-clean input.
func sanitizeResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.Join(strings.Fields(s), " ")
}

// decodeResponse applies the sanitation protocol and parses the result into
// v. On a parse failure it replaces single quotes with double quotes and
// retries once; a second failure means the output is unparsable and the
// caller must fall back.
func decodeResponse(raw string, v any) error {
	s := sanitizeResponse(raw)
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	s = strings.ReplaceAll(s, "'", `"`)
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("unparsable adapter response: %w", err)
	}
	return nil
}

// Typed accessors over the loosely-parsed adapter JSON. Missing or
// mistyped keys yield the provided default: partial success is success.

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func floatField(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return def
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// clamp01 bounds a confidence-like score to [0,1].
func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
