package moderation

import (
	"context"
	"log/slog"
	"time"
)

// Text analysis issue tags produced locally.
const (
	IssueClassifierError = "classifier_error"
	IssueParseError      = "ai_parse_error"
)

const (
	neutralTextScore   = 50
	classifierTempText = 0.1
)

// TextAnalysis is the TextSignalExtractor output.
type TextAnalysis struct {
	Score          int      `json:"score"`
	Issues         []string `json:"issues"`
	FlaggedPhrases []string `json:"flagged_phrases"`
	Unavailable    bool     `json:"unavailable,omitempty"`
}

// TextAnalyzer scores listing text with a remote classifier.
type TextAnalyzer struct {
	classifier Classifier
	timeout    time.Duration
}

// NewTextAnalyzer returns a TextAnalyzer; a non-positive timeout disables the deadline.
func NewTextAnalyzer(classifier Classifier, timeout time.Duration) *TextAnalyzer {
	return &TextAnalyzer{classifier: classifier, timeout: timeout}
}

// Analyze never fails: classifier errors and unusable responses yield neutral fallbacks.
func (a *TextAnalyzer) Analyze(ctx context.Context, title, description, prompt string) TextAnalysis {
	if prompt == "" {
		prompt = DefaultTextPrompt
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := a.classifier.ClassifyText(ctx, TextRequest{
		Prompt:      prompt,
		Content:     title + "\n\n" + description,
		Temperature: classifierTempText,
	})
	if err != nil {
		slog.WarnContext(ctx, "text classifier failed", "error", err)
		return TextAnalysis{
			Score:          neutralTextScore,
			Issues:         []string{IssueClassifierError},
			FlaggedPhrases: []string{},
			Unavailable:    true,
		}
	}

	v, ok := parseVerdict(raw)
	if !ok {
		slog.WarnContext(ctx, "text classifier returned no usable JSON", "response_length", len(raw))
		return TextAnalysis{
			Score:          neutralTextScore,
			Issues:         []string{IssueParseError},
			FlaggedPhrases: []string{},
		}
	}

	return TextAnalysis{
		Score:          normalizeScore(*v.Score),
		Issues:         nonNil(v.Issues),
		FlaggedPhrases: nonNil(v.ProblematicPhrases),
	}
}
