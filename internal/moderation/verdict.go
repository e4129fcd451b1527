package moderation

import (
	"encoding/json"
	"math"
)

// verdict is the JSON object the classifiers are prompted to answer with.
type verdict struct {
	Score              *float64 `json:"score"`
	Issues             []string `json:"issues"`
	ProblematicPhrases []string `json:"problematic_phrases"`
}

// parseVerdict finds the first JSON object in raw that carries a numeric score.
// Models frequently wrap the object in prose or code fences, so every balanced
// {...} candidate is tried in order.
func parseVerdict(raw string) (verdict, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' {
			continue
		}
		end := matchBrace(raw, start)
		if end < 0 {
			continue
		}
		var v verdict
		if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err == nil && v.Score != nil {
			return v, true
		}
	}
	return verdict{}, false
}

// matchBrace returns the index of the brace closing the object opened at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return i
			}
		}
	}
	return -1
}

// normalizeScore rounds and clamps a classifier score into [0, 100].
func normalizeScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clampScore(int(math.Round(math.Max(-1, math.Min(101, v)))))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
