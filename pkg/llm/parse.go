package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// NoResultsMarker is what prompts instruct the model to emit when it has
// nothing to report.
const NoResultsMarker = "(no results)"

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// FuzzyParseJSON extracts a JSON object from model output that may wrap
// it in code fences or prose. Returns ErrInvalidOutput when no object
// parses.
func FuzzyParseJSON(s string) (map[string]any, error) {
	candidates := []string{strings.TrimSpace(s)}
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			candidates = append(candidates, s[start:end+1])
		}
	}

	for _, candidate := range candidates {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidOutput, "no JSON object found in model output %q", abbrevOutput(s))
}

// IsNoResults reports whether model output is the no-results marker (or
// nothing at all).
func IsNoResults(s string) bool {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"'`*")
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))
	return cleaned == "" || cleaned == NoResultsMarker
}

func abbrevOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "…"
}
