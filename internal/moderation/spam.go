package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

// Spam signal names.
const (
	SpamRepeatedText      = "repeated_text"
	SpamExcessiveCaps     = "excessive_caps"
	SpamSpecialCharacters = "special_characters"
	SpamMultiplePhones    = "multiple_phones"
	SpamMultipleURLs      = "multiple_urls"
)

const (
	minRepeatUnit      = 3
	maxRepeatUnit      = 24
	minRepeatCount     = 3
	capsRatioLimit     = 0.7
	capsMinTitleLength = 10
	specialRatioLimit  = 0.15
	maxDistinctPhones  = 3
	maxURLs            = 2
	spamSignalsNeeded  = 2
)

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-.()]{5,20}\d`)
	urlPattern   = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\b[a-z0-9][a-z0-9-]*\.(?:com|net|org|info|biz|io|co|me|ly|cu)\b)`)
)

// SpamCheck is the SpamHeuristic output.
type SpamCheck struct {
	IsSpam  bool     `json:"is_spam"`
	Signals []string `json:"signals"`
}

// CheckSpam runs the local spam heuristics over a listing's title and description.
// A listing is spam when at least two signals fire.
func CheckSpam(title, description string) SpamCheck {
	text := title + " " + description
	signals := make([]string, 0, 5)

	if hasRepeatedRun(strings.ToLower(text) + " ") {
		signals = append(signals, SpamRepeatedText)
	}
	if capsRatioExceeded(title) {
		signals = append(signals, SpamExcessiveCaps)
	}
	if specialRatio(text) > specialRatioLimit {
		signals = append(signals, SpamSpecialCharacters)
	}
	if len(phoneCandidates(text)) > maxDistinctPhones {
		signals = append(signals, SpamMultiplePhones)
	}
	if len(urlPattern.FindAllString(text, -1)) > maxURLs {
		signals = append(signals, SpamMultipleURLs)
	}

	return SpamCheck{
		IsSpam:  len(signals) >= spamSignalsNeeded,
		Signals: signals,
	}
}

// hasRepeatedRun reports whether some unit of minRepeatUnit..maxRepeatUnit runes containing
// a letter or digit occurs minRepeatCount times back to back.
func hasRepeatedRun(s string) bool {
	r := []rune(s)
	n := len(r)
	for unit := minRepeatUnit; unit <= maxRepeatUnit; unit++ {
		span := unit * minRepeatCount
		for i := 0; i+span <= n; i++ {
			if !hasAlnum(r[i : i+unit]) {
				continue
			}
			if repeatsAt(r, i, unit) {
				return true
			}
		}
	}
	return false
}

func repeatsAt(r []rune, start, unit int) bool {
	for k := 1; k < minRepeatCount; k++ {
		for j := 0; j < unit; j++ {
			if r[start+j] != r[start+k*unit+j] {
				return false
			}
		}
	}
	return true
}

func hasAlnum(r []rune) bool {
	for _, c := range r {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return true
		}
	}
	return false
}

func capsRatioExceeded(title string) bool {
	if len([]rune(title)) <= capsMinTitleLength {
		return false
	}
	var letters, upper int
	for _, c := range title {
		if unicode.IsLetter(c) {
			letters++
			if unicode.IsUpper(c) {
				upper++
			}
		}
	}
	return letters > 0 && float64(upper)/float64(letters) > capsRatioLimit
}

func specialRatio(text string) float64 {
	var total, special int
	for _, c := range text {
		total++
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && !unicode.IsSpace(c) {
			special++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}

// phoneCandidates returns the distinct digit strings of 7 to 15 digits that look like phone numbers.
func phoneCandidates(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range phonePattern.FindAllString(text, -1) {
		d := digitsOnly(m)
		if len(d) < 7 || len(d) > 15 {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
