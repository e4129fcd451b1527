package moderation

// Decision is the outcome of one moderation run.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	// DecisionPending holds the listing for a human; only produced when automated
	// moderation is disabled or the classifiers are down under the closed fail policy.
	DecisionPending Decision = "pending"
)

// Reason tags added by aggregation. Classifier issue tags are passed through as-is.
const (
	ReasonProhibitedContent   = "prohibited_content"
	ReasonSuspiciousPattern   = "suspicious_pattern"
	ReasonBlacklisted         = "blacklisted_term"
	ReasonManualReviewTrigger = "manual_review_trigger"
	ReasonSpam                = "spam_detected"
	ReasonDuplicate           = "duplicate_listing"
	ReasonLowConfidence       = "low_confidence"
	ReasonAIUnavailable       = "ai_unavailable"
	ReasonAutoModerationOff   = "auto_moderation_disabled"
)

// Component weights in tenths.
const (
	textWeight      = 6
	imageWeight     = 3
	duplicateWeight = 1
	noImagesScore   = 85
	uniqueScore     = 10
	spamScoreCap    = 40
)

// Details carries every signal a decision was built from.
type Details struct {
	TextAnalysis   TextAnalysis    `json:"text_analysis"`
	ImageAnalysis  []ImageAnalysis `json:"image_analysis"`
	DuplicateCheck DuplicateCheck  `json:"duplicate_check"`
	SpamCheck      SpamCheck       `json:"spam_check"`
	RuleCheck      RuleCheck       `json:"rule_check"`
}

// Result is the outcome of a moderation run.
type Result struct {
	Decision             Decision `json:"decision"`
	Confidence           int      `json:"confidence"`
	Threshold            int      `json:"threshold"`
	Reasons              []string `json:"reasons"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	// Unverified is set when no remote classifier produced a verdict.
	Unverified bool    `json:"unverified,omitempty"`
	Details    Details `json:"details"`
}

// ImageScores lists the per-image scores in input order.
func (r Result) ImageScores() []int {
	scores := make([]int, len(r.Details.ImageAnalysis))
	for i, img := range r.Details.ImageAnalysis {
		scores[i] = img.Score
	}
	return scores
}

// FlaggedPhrases merges classifier-flagged phrases with matched rule terms.
func (r Result) FlaggedPhrases() []string {
	return dedupe(append(append([]string{}, r.Details.TextAnalysis.FlaggedPhrases...), r.Details.RuleCheck.Terms()...))
}

// Confidence combines the text, image and duplicate components into a 0..100 score:
// text*0.6 + avg(images)*0.3 + dup*0.1, rounded half away from zero. An empty image list
// counts as a single image scoring 85.
func Confidence(text TextAnalysis, images []ImageAnalysis, dup DuplicateCheck) int {
	n, sum := 1, noImagesScore
	if len(images) > 0 {
		n, sum = len(images), 0
		for _, img := range images {
			sum += img.Score
		}
	}
	dupScore := 0
	if !dup.IsDuplicate {
		dupScore = uniqueScore
	}

	num := text.Score*textWeight*n + sum*imageWeight + dupScore*duplicateWeight*n
	den := 10 * n
	return clampScore((2*num + den) / (2 * den))
}

// Aggregate turns the collected signals into a decision. Rule violations, spam and
// duplicates veto approval regardless of the score.
func Aggregate(d Details, threshold int) Result {
	overall := Confidence(d.TextAnalysis, d.ImageAnalysis, d.DuplicateCheck)
	if d.SpamCheck.IsSpam && overall > spamScoreCap {
		overall = spamScoreCap
	}

	reasons := make([]string, 0, 8)
	for _, v := range d.RuleCheck.Violations {
		switch v.Kind {
		case MatchProhibitedKeyword:
			reasons = append(reasons, ReasonProhibitedContent)
		case MatchSuspiciousPattern:
			reasons = append(reasons, ReasonSuspiciousPattern)
		case MatchBlacklist:
			reasons = append(reasons, ReasonBlacklisted)
		}
	}
	if len(d.RuleCheck.ManualReviewTriggers) > 0 {
		reasons = append(reasons, ReasonManualReviewTrigger)
	}
	if d.SpamCheck.IsSpam {
		reasons = append(reasons, ReasonSpam)
	}
	if d.DuplicateCheck.IsDuplicate {
		reasons = append(reasons, ReasonDuplicate)
	}
	reasons = append(reasons, d.TextAnalysis.Issues...)
	for _, img := range d.ImageAnalysis {
		reasons = append(reasons, img.Issues...)
	}
	if overall < threshold {
		reasons = append(reasons, ReasonLowConfidence)
	}

	approved := overall >= threshold &&
		!d.RuleCheck.HasViolation() &&
		!d.SpamCheck.IsSpam &&
		!d.DuplicateCheck.IsDuplicate

	decision := DecisionRejected
	if approved {
		decision = DecisionApproved
	}

	return Result{
		Decision:             decision,
		Confidence:           overall,
		Threshold:            threshold,
		Reasons:              dedupe(reasons),
		RequiresManualReview: d.RuleCheck.RequiresManualReview,
		Details:              d,
	}
}

// hasLocalVeto reports whether a signal computed without the classifiers forbids approval.
func (d Details) hasLocalVeto() bool {
	if d.RuleCheck.HasViolation() || d.SpamCheck.IsSpam || d.DuplicateCheck.IsDuplicate {
		return true
	}
	for _, img := range d.ImageAnalysis {
		for _, issue := range img.Issues {
			if issue == IssueInvalidImageReference {
				return true
			}
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
