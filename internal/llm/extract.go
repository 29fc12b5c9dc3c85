package llm

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)```")

// ExtractJSON recovers the JSON object embedded in a model response.
//
// Blank input yields "{}". A fenced code block wins over loose braces; without
// either the input is returned unchanged and decoding is left to fail.
func ExtractJSON(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "{}"
	}

	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}

	return raw
}
