package moderation

import (
	"context"
	"log/slog"
	"time"

	"marketgate/internal/config"
	"marketgate/internal/models"
	"marketgate/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Input is the listing content a run evaluates.
type Input struct {
	ListingID    uint
	Title        string
	Description  string
	Images       []string
	ContactPhone string
	ContactEmail string
}

// InputFromListing builds an Input from a stored listing.
func InputFromListing(l *models.Listing) Input {
	return Input{
		ListingID:    l.ID,
		Title:        l.Title,
		Description:  l.Description,
		Images:       l.Images,
		ContactPhone: l.ContactPhone,
		ContactEmail: l.ContactEmail,
	}
}

// Options configures a Pipeline.
type Options struct {
	Classifier       Classifier
	ImageStore       ImageStore
	Rules            *RuleMatcher
	Duplicates       DuplicateChecker
	FailPolicy       config.FailPolicy
	Timeout          time.Duration
	ImageConcurrency int
}

// Pipeline runs every extractor for one submission and aggregates the result.
type Pipeline struct {
	text       *TextAnalyzer
	images     *ImageAnalyzer
	rules      *RuleMatcher
	duplicates DuplicateChecker
	failPolicy config.FailPolicy
}

// NewPipeline wires a Pipeline. Missing rules and duplicate checker fall back to the
// embedded rule set and NoopDuplicateChecker.
func NewPipeline(opts Options) *Pipeline {
	if opts.Rules == nil {
		opts.Rules = DefaultRuleMatcher()
	}
	if opts.Duplicates == nil {
		opts.Duplicates = NoopDuplicateChecker{}
	}
	if opts.FailPolicy == "" {
		opts.FailPolicy = config.FailOpen
	}
	return &Pipeline{
		text:       NewTextAnalyzer(opts.Classifier, opts.Timeout),
		images:     NewImageAnalyzer(opts.Classifier, opts.ImageStore, opts.Timeout, opts.ImageConcurrency),
		rules:      opts.Rules,
		duplicates: opts.Duplicates,
		failPolicy: opts.FailPolicy,
	}
}

// Run evaluates one listing against a settings snapshot and the active blacklist. It always
// reaches a decision: cancellation of ctx does not abort the run.
func (p *Pipeline) Run(ctx context.Context, in Input, policy Policy, blacklist []models.BlacklistEntry) Result {
	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.StartModerationSpan(ctx, in.ListingID, len(in.Images))
	defer span.End()

	var d Details
	d.RuleCheck = p.rules.Check(in, blacklist)
	d.SpamCheck = CheckSpam(in.Title, in.Description)

	var result Result
	if !policy.AutoModerationEnabled {
		d.ImageAnalysis = []ImageAnalysis{}
		d.TextAnalysis = TextAnalysis{Issues: []string{}, FlaggedPhrases: []string{}}
		result = Result{
			Decision:             DecisionPending,
			Threshold:            policy.EffectiveThreshold(),
			Reasons:              []string{ReasonAutoModerationOff},
			RequiresManualReview: true,
			Details:              d,
		}
	} else {
		d.TextAnalysis = p.text.Analyze(ctx, in.Title, in.Description, policy.TextPrompt)
		d.ImageAnalysis = p.images.Analyze(ctx, in.Images, policy.ImagePrompt, policy.MaxImages)

		dup, err := p.duplicates.CheckDuplicate(ctx, in)
		if err != nil {
			slog.WarnContext(ctx, "duplicate check failed", "listing_id", in.ListingID, "error", err)
			dup = DuplicateCheck{Method: "error"}
		}
		d.DuplicateCheck = dup

		result = Aggregate(d, policy.EffectiveThreshold())
		if unverified(d) {
			result = p.applyFailPolicy(result)
		}
	}

	recordDecision(result)
	span.SetAttributes(
		attribute.String("moderation.decision", string(result.Decision)),
		attribute.Int("moderation.confidence", result.Confidence),
	)
	slog.InfoContext(ctx, "moderation decision",
		"listing_id", in.ListingID,
		"decision", result.Decision,
		"confidence", result.Confidence,
		"threshold", result.Threshold,
		"reasons", result.Reasons,
		"unverified", result.Unverified,
	)
	return result
}

// unverified reports whether no classifier produced a verdict for this run.
func unverified(d Details) bool {
	if !d.TextAnalysis.Unavailable {
		return false
	}
	for _, img := range d.ImageAnalysis {
		if img.Classified {
			return false
		}
	}
	return true
}

func (p *Pipeline) applyFailPolicy(r Result) Result {
	r.Unverified = true
	if r.Details.hasLocalVeto() {
		return r
	}

	reasons := []string{ReasonAIUnavailable}
	for _, reason := range r.Reasons {
		if reason != ReasonLowConfidence {
			reasons = append(reasons, reason)
		}
	}
	r.Reasons = dedupe(reasons)

	if p.failPolicy == config.FailClosed {
		r.Decision = DecisionPending
		r.RequiresManualReview = true
		return r
	}
	r.Decision = DecisionApproved
	return r
}

func recordDecision(r Result) {
	observability.ModerationDecisions.WithLabelValues(string(r.Decision)).Inc()
	observability.ModerationConfidence.Observe(float64(r.Confidence))
	for _, v := range r.Details.RuleCheck.Violations {
		observability.ModerationVetoes.WithLabelValues(v.Kind).Inc()
	}
	if r.Details.SpamCheck.IsSpam {
		observability.ModerationVetoes.WithLabelValues("spam").Inc()
	}
	if r.Details.DuplicateCheck.IsDuplicate {
		observability.ModerationVetoes.WithLabelValues("duplicate").Inc()
	}
}
