package moderation

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Image analysis issue tags produced locally.
const (
	IssueInvalidImageReference = "invalid_image_reference"
	IssueImageAnalysisError    = "image_analysis_error"
)

const (
	imageFallbackScore  = 70
	maxImageDimension   = 1024
	classifierTempImage = 0.1
	jpegQuality         = 85
)

// ImageAnalysis is the per-image ImageSignalExtractor output.
type ImageAnalysis struct {
	Reference string   `json:"reference"`
	Score     int      `json:"score"`
	Issues    []string `json:"issues"`
	// Classified is true when the score came from a parsed classifier verdict.
	Classified bool `json:"classified"`
}

// ImageAnalyzer scores listing images with a remote visual classifier.
type ImageAnalyzer struct {
	classifier  Classifier
	store       ImageStore
	timeout     time.Duration
	concurrency int
}

// NewImageAnalyzer returns an ImageAnalyzer running at most concurrency calls at once.
func NewImageAnalyzer(classifier Classifier, store ImageStore, timeout time.Duration, concurrency int) *ImageAnalyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImageAnalyzer{classifier: classifier, store: store, timeout: timeout, concurrency: concurrency}
}

// Analyze scores up to limit images. Results keep input order and one failing image never
// affects the others.
func (a *ImageAnalyzer) Analyze(ctx context.Context, refs []string, prompt string, limit int) []ImageAnalysis {
	if limit < 0 || limit > MaxImagesAnalyzed {
		limit = MaxImagesAnalyzed
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	if prompt == "" {
		prompt = DefaultImagePrompt
	}

	results := make([]ImageAnalysis, len(refs))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = a.analyzeOne(ctx, ref, prompt)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *ImageAnalyzer) analyzeOne(ctx context.Context, ref, prompt string) ImageAnalysis {
	data, err := a.store.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrInvalidImageReference) {
			slog.WarnContext(ctx, "rejected image reference", "reference", ref, "error", err)
			return ImageAnalysis{Reference: ref, Score: 0, Issues: []string{IssueInvalidImageReference}}
		}
		slog.WarnContext(ctx, "image could not be read", "reference", ref, "error", err)
		return ImageAnalysis{Reference: ref, Score: imageFallbackScore, Issues: []string{IssueImageAnalysisError}}
	}

	payload, mime := prepareImage(data)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	raw, err := a.classifier.ClassifyImage(ctx, ImageRequest{
		Prompt:      prompt,
		Image:       payload,
		MIMEType:    mime,
		Temperature: classifierTempImage,
	})
	if err != nil {
		slog.WarnContext(ctx, "image classifier failed", "reference", ref, "error", err)
		return ImageAnalysis{Reference: ref, Score: imageFallbackScore, Issues: []string{IssueImageAnalysisError}}
	}

	v, ok := parseVerdict(raw)
	if !ok {
		slog.WarnContext(ctx, "image classifier returned no usable JSON", "reference", ref)
		return ImageAnalysis{Reference: ref, Score: imageFallbackScore, Issues: []string{IssueParseError}}
	}
	return ImageAnalysis{
		Reference:  ref,
		Score:      normalizeScore(*v.Score),
		Issues:     nonNil(v.Issues),
		Classified: true,
	}
}

// prepareImage downscales a decodable image to at most maxImageDimension pixels per side and
// re-encodes it as JPEG. Undecodable payloads are passed through unchanged.
func prepareImage(data []byte) ([]byte, string) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, http.DetectContentType(data)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxImageDimension || h > maxImageDimension {
		if w >= h {
			h = h * maxImageDimension / w
			w = maxImageDimension
		} else {
			w = w * maxImageDimension / h
			h = maxImageDimension
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data, http.DetectContentType(data)
	}
	return buf.Bytes(), "image/jpeg"
}
