package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketgate/internal/config"
	"marketgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDuplicates struct{}

func (failingDuplicates) CheckDuplicate(context.Context, Input) (DuplicateCheck, error) {
	return DuplicateCheck{}, errors.New("index offline")
}

func newTestPipeline(c Classifier, policy config.FailPolicy) *Pipeline {
	return NewPipeline(Options{
		Classifier: c,
		ImageStore: memImageStore{"/uploads/bike.jpg": []byte("jpeg-bytes")},
		FailPolicy: policy,
		Timeout:    time.Second,
	})
}

var cleanInput = Input{
	ListingID:   1,
	Title:       "Bicicleta de montaña",
	Description: "Rodado 26, frenos nuevos, poco uso.",
	Images:      []string{"/uploads/bike.jpg"},
}

func TestPipeline_CleanListingWithImageApproved(t *testing.T) {
	c := scoring(`{"score": 90, "issues": [], "problematic_phrases": []}`, `{"score": 90, "issues": []}`)
	p := newTestPipeline(c, config.FailOpen)

	r := p.Run(context.Background(), cleanInput, DefaultPolicy(), nil)

	assert.Equal(t, DecisionApproved, r.Decision)
	assert.Equal(t, 82, r.Confidence)
	assert.Empty(t, r.Reasons)
	assert.False(t, r.Unverified)
	assert.Equal(t, []int{90}, r.ImageScores())
	assert.Equal(t, 1, c.textCalls)
	assert.Equal(t, 1, c.imageCalls)
}

func TestPipeline_BlacklistPhraseVetoesPerfectText(t *testing.T) {
	c := scoring(`{"score": 100, "issues": []}`, `{"score": 100}`)
	p := newTestPipeline(c, config.FailOpen)
	in := cleanInput
	in.Description = "Camiseta conmemorativa de la Revolución, talla M."
	blacklist := []models.BlacklistEntry{{Type: models.BlacklistPhrase, Value: "revolucion", IsActive: true}}

	r := p.Run(context.Background(), in, DefaultPolicy(), blacklist)

	assert.Equal(t, DecisionRejected, r.Decision)
	assert.True(t, r.RequiresManualReview)
	assert.Contains(t, r.Reasons, ReasonBlacklisted)
	assert.Contains(t, r.FlaggedPhrases(), "revolucion")
}

func TestPipeline_FailOpenWhenClassifierUnavailable(t *testing.T) {
	p := newTestPipeline(unavailableClassifier(), config.FailOpen)

	r := p.Run(context.Background(), cleanInput, DefaultPolicy(), nil)

	assert.Equal(t, DecisionApproved, r.Decision)
	assert.True(t, r.Unverified)
	assert.Equal(t, ReasonAIUnavailable, r.Reasons[0])
	assert.NotContains(t, r.Reasons, ReasonLowConfidence)
}

func TestPipeline_FailClosedHoldsUnverifiedListing(t *testing.T) {
	p := newTestPipeline(unavailableClassifier(), config.FailClosed)

	r := p.Run(context.Background(), cleanInput, DefaultPolicy(), nil)

	assert.Equal(t, DecisionPending, r.Decision)
	assert.True(t, r.Unverified)
	assert.True(t, r.RequiresManualReview)
	assert.Contains(t, r.Reasons, ReasonAIUnavailable)
}

func TestPipeline_FailOpenStillHonoursLocalVeto(t *testing.T) {
	p := newTestPipeline(unavailableClassifier(), config.FailOpen)
	in := cleanInput
	in.Description = "Vendo cocaína de calidad"

	r := p.Run(context.Background(), in, DefaultPolicy(), nil)

	assert.Equal(t, DecisionRejected, r.Decision)
	assert.True(t, r.Unverified)
	assert.Contains(t, r.Reasons, ReasonProhibitedContent)
}

func TestPipeline_ImageVerdictMeansVerified(t *testing.T) {
	c := &stubClassifier{
		textFn:  func(context.Context, TextRequest) (string, error) { return "", errors.New("timeout") },
		imageFn: func(context.Context, ImageRequest) (string, error) { return `{"score": 90}`, nil },
	}
	p := newTestPipeline(c, config.FailOpen)

	r := p.Run(context.Background(), cleanInput, DefaultPolicy(), nil)

	assert.False(t, r.Unverified)
	assert.Equal(t, 58, r.Confidence)
	assert.Equal(t, DecisionRejected, r.Decision)
	assert.Contains(t, r.Reasons, IssueClassifierError)
}

func TestPipeline_SpamRejectedRegardlessOfScore(t *testing.T) {
	c := scoring(`{"score": 100}`, `{"score": 100}`)
	p := newTestPipeline(c, config.FailOpen)
	in := cleanInput
	in.Title = "OFERTA INCREIBLE SOLO HOY"
	in.Description = "visita http://a.com http://b.com http://c.com"

	r := p.Run(context.Background(), in, DefaultPolicy(), nil)

	assert.Equal(t, DecisionRejected, r.Decision)
	assert.LessOrEqual(t, r.Confidence, 40)
}

func TestPipeline_AutoModerationDisabled(t *testing.T) {
	c := scoring(`{"score": 100}`, `{"score": 100}`)
	p := newTestPipeline(c, config.FailOpen)
	policy := DefaultPolicy()
	policy.AutoModerationEnabled = false

	r := p.Run(context.Background(), cleanInput, policy, nil)

	assert.Equal(t, DecisionPending, r.Decision)
	assert.Equal(t, []string{ReasonAutoModerationOff}, r.Reasons)
	assert.Zero(t, c.textCalls)
	assert.Zero(t, c.imageCalls)
}

func TestPipeline_DuplicateLookupErrorFailsOpen(t *testing.T) {
	p := NewPipeline(Options{
		Classifier: scoring(`{"score": 90}`, `{"score": 90}`),
		ImageStore: memImageStore{},
		Duplicates: failingDuplicates{},
		Timeout:    time.Second,
	})
	in := cleanInput
	in.Images = nil

	r := p.Run(context.Background(), in, DefaultPolicy(), nil)

	assert.Equal(t, DecisionApproved, r.Decision)
	assert.False(t, r.Details.DuplicateCheck.IsDuplicate)
}

func TestPipeline_IgnoresCallerCancellation(t *testing.T) {
	c := &stubClassifier{textFn: func(ctx context.Context, _ TextRequest) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return `{"score": 95}`, nil
	}}
	p := newTestPipeline(c, config.FailClosed)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := cleanInput
	in.Images = nil
	r := p.Run(ctx, in, DefaultPolicy(), nil)

	require.False(t, r.Unverified)
	assert.Equal(t, DecisionApproved, r.Decision)
}

func TestPipeline_StrictnessChangesOutcome(t *testing.T) {
	c := scoring(`{"score": 80}`, `{"score": 80}`)
	p := newTestPipeline(c, config.FailOpen)
	in := cleanInput
	in.Images = nil

	policy := DefaultPolicy()
	// 80*0.6 + 85*0.3 + 1 = 74.5 -> 75
	assert.Equal(t, DecisionApproved, p.Run(context.Background(), in, policy, nil).Decision)

	policy.Strictness = StrictnessHigh
	assert.Equal(t, DecisionRejected, p.Run(context.Background(), in, policy, nil).Decision)
}
