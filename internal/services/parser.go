package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	jsonFenceMarker = "```json"
	fenceMarker     = "```"
)

// ExtractJSONCandidate slices the most likely JSON substring out of a
// model completion. Completions may be bare JSON, JSON inside a fenced
// code block (optionally tagged as json), or JSON surrounded by prose.
// Only the first fence pair is honored; without a closing marker the
// remainder of the text is used.
func ExtractJSONCandidate(text string) string {
	if start := strings.Index(text, jsonFenceMarker); start >= 0 {
		return sliceToClosingFence(text[start+len(jsonFenceMarker):])
	}
	if start := strings.Index(text, fenceMarker); start >= 0 {
		return sliceToClosingFence(text[start+len(fenceMarker):])
	}
	return text
}

func sliceToClosingFence(rest string) string {
	if end := strings.Index(rest, fenceMarker); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ParseModelJSON parses the extracted properties out of a model
// completion. The candidate substring is parsed strictly; if that
// fails, the whole unmodified completion is parsed as a fallback,
// which covers completions where the fence heuristic mis-sliced.
func ParseModelJSON(text string) (map[string]any, error) {
	var properties map[string]any
	if err := json.Unmarshal([]byte(ExtractJSONCandidate(text)), &properties); err == nil {
		return properties, nil
	}
	if err := json.Unmarshal([]byte(text), &properties); err != nil {
		return nil, fmt.Errorf("completion is not a valid JSON object: %w", err)
	}
	return properties, nil
}
