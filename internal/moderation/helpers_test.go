package moderation

import (
	"context"
	"errors"
	"sync"
)

type stubClassifier struct {
	mu         sync.Mutex
	textFn     func(ctx context.Context, req TextRequest) (string, error)
	imageFn    func(ctx context.Context, req ImageRequest) (string, error)
	textCalls  int
	imageCalls int
}

func (s *stubClassifier) ClassifyText(ctx context.Context, req TextRequest) (string, error) {
	s.mu.Lock()
	s.textCalls++
	s.mu.Unlock()
	if s.textFn == nil {
		return `{"score": 90, "issues": [], "problematic_phrases": []}`, nil
	}
	return s.textFn(ctx, req)
}

func (s *stubClassifier) ClassifyImage(ctx context.Context, req ImageRequest) (string, error) {
	s.mu.Lock()
	s.imageCalls++
	s.mu.Unlock()
	if s.imageFn == nil {
		return `{"score": 90, "issues": []}`, nil
	}
	return s.imageFn(ctx, req)
}

func scoring(text, image string) *stubClassifier {
	return &stubClassifier{
		textFn:  func(context.Context, TextRequest) (string, error) { return text, nil },
		imageFn: func(context.Context, ImageRequest) (string, error) { return image, nil },
	}
}

func unavailableClassifier() *stubClassifier {
	err := errors.New("dial tcp: connection refused")
	return &stubClassifier{
		textFn:  func(context.Context, TextRequest) (string, error) { return "", err },
		imageFn: func(context.Context, ImageRequest) (string, error) { return "", err },
	}
}

// memImageStore serves fixed payloads and treats anything outside /uploads/ as invalid.
type memImageStore map[string][]byte

func (m memImageStore) Open(_ context.Context, ref string) ([]byte, error) {
	data, ok := m[ref]
	if !ok {
		if len(ref) < 9 || ref[:9] != "/uploads/" {
			return nil, ErrInvalidImageReference
		}
		return nil, errors.New("no such file")
	}
	return data, nil
}
