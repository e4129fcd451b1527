// Package moderation implements the automated listing moderation pipeline: remote text and
// image classification, rule matching over normalized text, local spam heuristics and the
// aggregation of those signals into a single decision.
package moderation

import (
	"context"
	"errors"
)

// ErrClassifierUnavailable marks a classifier call that never produced a response
// (transport failure, non-2xx status, open circuit breaker or timeout).
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// TextRequest is a single text classification call.
type TextRequest struct {
	Prompt      string
	Content     string
	Temperature float64
}

// ImageRequest is a single image classification call.
type ImageRequest struct {
	Prompt      string
	Image       []byte
	MIMEType    string
	Temperature float64
}

// Classifier is a remote scoring oracle. Implementations return the raw model output;
// callers extract the JSON verdict themselves because models often wrap it in prose.
type Classifier interface {
	ClassifyText(ctx context.Context, req TextRequest) (string, error)
	ClassifyImage(ctx context.Context, req ImageRequest) (string, error)
}
