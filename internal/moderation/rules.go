package moderation

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"marketgate/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Rule match kinds.
const (
	MatchProhibitedKeyword = "prohibited_keyword"
	MatchSuspiciousPattern = "suspicious_pattern"
	MatchBlacklist         = "blacklist"
	MatchManualReview      = "manual_review_trigger"
)

// RuleSet is the static policy list loaded from YAML.
type RuleSet struct {
	ProhibitedKeywords   []string `yaml:"prohibited_keywords"`
	SuspiciousPatterns   []string `yaml:"suspicious_patterns"`
	ManualReviewTriggers []string `yaml:"manual_review_triggers"`
}

// LoadRuleSet reads the rule set at path, or the embedded default when path is empty.
func LoadRuleSet(path string) (RuleSet, error) {
	data := defaultPolicyYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return RuleSet{}, fmt.Errorf("read policy file: %w", err)
		}
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse policy file: %w", err)
	}
	return rs, nil
}

// RuleMatch is one fired rule.
type RuleMatch struct {
	Kind   string `json:"kind"`
	Term   string `json:"term"`
	Reason string `json:"reason,omitempty"`
}

// RuleCheck is the RuleMatcher output.
type RuleCheck struct {
	Violations           []RuleMatch `json:"violations"`
	ManualReviewTriggers []RuleMatch `json:"manual_review_triggers"`
	RequiresManualReview bool        `json:"requires_manual_review"`
}

// HasViolation reports whether a hard rule fired.
func (r RuleCheck) HasViolation() bool {
	return len(r.Violations) > 0
}

// Terms returns every matched term, hard rules first.
func (r RuleCheck) Terms() []string {
	terms := make([]string, 0, len(r.Violations)+len(r.ManualReviewTriggers))
	for _, m := range r.Violations {
		terms = append(terms, m.Term)
	}
	for _, m := range r.ManualReviewTriggers {
		terms = append(terms, m.Term)
	}
	return terms
}

// RuleMatcher checks listing content against the static rule set and the dynamic blacklist.
type RuleMatcher struct {
	prohibited []string
	patterns   []*regexp.Regexp
	triggers   []string
}

// NewRuleMatcher compiles a rule set.
func NewRuleMatcher(rs RuleSet) (*RuleMatcher, error) {
	m := &RuleMatcher{
		prohibited: nonEmpty(rs.ProhibitedKeywords),
		triggers:   nonEmpty(rs.ManualReviewTriggers),
	}
	for _, p := range rs.SuspiciousPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile suspicious pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// DefaultRuleMatcher compiles the embedded rule set.
func DefaultRuleMatcher() *RuleMatcher {
	rs, err := LoadRuleSet("")
	if err != nil {
		panic(err)
	}
	m, err := NewRuleMatcher(rs)
	if err != nil {
		panic(err)
	}
	return m
}

// Check matches the listing against every rule list and the active blacklist entries.
func (m *RuleMatcher) Check(in Input, blacklist []models.BlacklistEntry) RuleCheck {
	text := Normalize(in.Title + " " + in.Description)
	var out RuleCheck

	for _, kw := range m.prohibited {
		if containsTerm(text, kw) {
			out.Violations = append(out.Violations, RuleMatch{Kind: MatchProhibitedKeyword, Term: displayTerm(kw)})
		}
	}
	for _, re := range m.patterns {
		if loc := re.FindString(text); loc != "" {
			out.Violations = append(out.Violations, RuleMatch{Kind: MatchSuspiciousPattern, Term: loc})
		}
	}
	for _, entry := range blacklist {
		if !entry.IsActive {
			continue
		}
		if matchBlacklistEntry(entry, text, in) {
			out.Violations = append(out.Violations, RuleMatch{
				Kind:   MatchBlacklist,
				Term:   displayTerm(entry.Value),
				Reason: entry.Reason,
			})
		}
	}
	for _, kw := range m.triggers {
		if containsTerm(text, kw) {
			out.ManualReviewTriggers = append(out.ManualReviewTriggers, RuleMatch{Kind: MatchManualReview, Term: displayTerm(kw)})
		}
	}

	out.RequiresManualReview = len(out.Violations) > 0 || len(out.ManualReviewTriggers) > 0
	return out
}

func matchBlacklistEntry(entry models.BlacklistEntry, normalizedText string, in Input) bool {
	switch entry.Type {
	case models.BlacklistWord, models.BlacklistPhrase:
		return containsTerm(normalizedText, entry.Value)
	case models.BlacklistEmail:
		email := strings.ToLower(strings.TrimSpace(entry.Value))
		if email == "" {
			return false
		}
		if strings.EqualFold(strings.TrimSpace(in.ContactEmail), email) {
			return true
		}
		return strings.Contains(strings.ToLower(in.Title+" "+in.Description), email)
	case models.BlacklistPhone:
		phone := digitsOnly(entry.Value)
		if samePhone(digitsOnly(in.ContactPhone), phone) {
			return true
		}
		for _, candidate := range phoneCandidates(in.Title + " " + in.Description) {
			if samePhone(candidate, phone) {
				return true
			}
		}
	}
	return false
}

// localCountryCode is stripped from numbers longer than a national number before comparing.
const localCountryCode = "53"

const nationalNumberLen = 8

// samePhone compares digit strings after dropping an international prefix on either side.
func samePhone(a, b string) bool {
	a, b = nationalNumber(a), nationalNumber(b)
	if len(a) < 7 || len(b) < 7 {
		return false
	}
	return a == b
}

func nationalNumber(digits string) string {
	digits = strings.TrimPrefix(digits, "00")
	if len(digits) > nationalNumberLen {
		digits = strings.TrimPrefix(digits, localCountryCode)
	}
	return digits
}

// displayTerm drops the stem marker so flagged phrases read as plain words.
func displayTerm(term string) string {
	return strings.TrimSuffix(strings.TrimSpace(term), "*")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
