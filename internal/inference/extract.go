package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquasense/aquasense/internal/observability"
)

// ExtractionError reports that no parseable JSON object was found in the raw
// model text. It keeps the original text so callers can fall back on it.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no json object in model response: %v", e.Err)
	}
	return "no json object in model response"
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractJSONObject locates the first balanced JSON object in free-form model
// text (models routinely wrap JSON in prose or code fences) and parses it.
// Failure is returned as an *ExtractionError, never panicked or logged away.
func ExtractJSONObject(raw string) (map[string]any, error) {
	clean := stripCodeFences(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end < start {
		observability.IncExtractionFailure()
		return nil, &ExtractionError{Raw: raw}
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(clean[start:end+1]), &parsed); err != nil {
		observability.IncExtractionFailure()
		return nil, &ExtractionError{Raw: raw, Err: err}
	}
	return parsed, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// The language tag lives on the fence line, never in the payload.
		if parts := strings.SplitN(s, "\n", 2); len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
		}
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
