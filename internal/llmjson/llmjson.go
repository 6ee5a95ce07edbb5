// Package llmjson pulls a JSON document out of a free-text model answer.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	languageTag = "json"
	fence       = "```"
)

// Extract returns the JSON part of answer. When answer mentions "json" the text
// after its first occurrence up to the next code fence is taken, otherwise the
// answer is used as is. Surrounding whitespace is trimmed.
func Extract(answer string) string {
	_, after, found := strings.Cut(answer, languageTag)
	if !found {
		return strings.TrimSpace(answer)
	}
	body, _, _ := strings.Cut(after, fence)
	return strings.TrimSpace(body)
}

// Decode extracts the JSON part of answer and unmarshals it into T.
func Decode[T any](answer string) (T, error) {
	var out T
	body := Extract(answer)
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("failed to decode model answer: %w", err)
	}
	return out, nil
}
