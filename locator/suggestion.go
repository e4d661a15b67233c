package locator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suggestion is the structured body the AI service returns inside its raw
// completion text.
type Suggestion struct {
	Strategy   string  `json:"strategy"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ParseSuggestion extracts a Locator from raw AI completion text. The text is
// expected to contain a JSON object; markdown code fences and surrounding
// prose are tolerated. A missing or unknown strategy, or an empty value,
// yields an error; callers treat that as "no suggestion".
func ParseSuggestion(raw string) (Locator, error) {
	body := extractJSON(raw)
	if body == "" {
		return Locator{}, fmt.Errorf("locator: no JSON object in suggestion text")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return Locator{}, fmt.Errorf("locator: parse suggestion: %w", err)
	}
	if s.Strategy == "" {
		// Some models answer with "by" instead of "strategy".
		var alt struct {
			By    string `json:"by"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(body), &alt); err == nil && alt.By != "" {
			s.Strategy = alt.By
			if s.Value == "" {
				s.Value = alt.Value
			}
		}
	}

	return New(s.Strategy, s.Value)
}

// extractJSON returns the first top-level {...} span in the text, stripping
// any markdown fences around it.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			text = rest[:j]
		} else {
			text = rest
		}
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
