package connector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loomworks/loom/pkg/models"
)

// parseStructured maps a raw model response to a result map. It tries a
// strict JSON parse first, then the loose fallback. A nil error means the
// result carries at least one field.
func parseStructured(cap models.Capability, raw string) (models.Result, error) {
	result, err := LooseParseJSON(raw)
	if err != nil {
		return nil, &ParseError{Capability: cap, Err: err}
	}
	return result, nil
}

// LooseParseJSON extracts a JSON object from model output that may wrap it in
// prose or markdown fences. It tries, in order: the whole string, the content
// of any ```json fence, and the outermost brace-delimited span.
func LooseParseJSON(raw string) (models.Result, error) {
	trimmed := strings.TrimSpace(raw)

	var out models.Result
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	if fenced := extractFence(trimmed); fenced != "" {
		if err := json.Unmarshal([]byte(fenced), &out); err == nil {
			return out, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &out); err == nil {
			return out, nil
		}
	}

	return nil, fmt.Errorf("no JSON object found in response")
}

// extractFence returns the body of the first markdown code fence, or "".
func extractFence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return ""
	}
	rest := s[start+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
