package moderation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for keyword matching: accents are stripped, letters lowercased and
// every run of non-alphanumeric characters collapsed to a single space.
// "¡Revolución!" and "revolucion" normalize to the same string.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// containsTerm reports whether the normalized term occurs in normalized text on word boundaries.
// A term ending in "*" is a stem: its last word matches any text word starting with it, so
// "cocaina*" also catches "cocainas" while a bare "cocaina" does not.
func containsTerm(normalizedText, term string) bool {
	stem := strings.HasSuffix(strings.TrimSpace(term), "*")
	t := Normalize(term)
	if t == "" || normalizedText == "" {
		return false
	}
	if !stem {
		return strings.Contains(" "+normalizedText+" ", " "+t+" ")
	}

	words := strings.Fields(normalizedText)
	want := strings.Fields(t)
	last := len(want) - 1
	for i := 0; i+len(want) <= len(words); i++ {
		match := true
		for j, w := range want {
			got := words[i+j]
			if j == last {
				match = strings.HasPrefix(got, w)
			} else {
				match = got == w
			}
			if !match {
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
