package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestHTTPClassifier_ClassifyText(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"score": 77}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPClassifierConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", TextModel: "text-model"})
	out, err := c.ClassifyText(context.Background(), TextRequest{Prompt: "policy", Content: "title\n\nbody", Temperature: 0.1})

	require.NoError(t, err)
	assert.Equal(t, `{"score": 77}`, out)
	assert.Equal(t, "text-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "policy", got.Messages[0].Content)
	assert.Equal(t, "title\n\nbody", got.Messages[1].Content)
}

func TestHTTPClassifier_ClassifyImageSendsDataURL(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		data, _ := json.Marshal(raw)
		body = string(data)
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"score": 12, "issues": ["weapons"]}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPClassifierConfig{BaseURL: srv.URL, VisionModel: "vision-model"})
	out, err := c.ClassifyImage(context.Background(), ImageRequest{Prompt: "strict", Image: []byte("abc"), MIMEType: "image/png"})

	require.NoError(t, err)
	assert.Contains(t, out, `"score": 12`)
	assert.Contains(t, body, "data:image/png;base64,YWJj")
	assert.Contains(t, body, `"vision-model"`)
}

func TestHTTPClassifier_NonSuccessStatusIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPClassifierConfig{BaseURL: srv.URL})
	_, err := c.ClassifyText(context.Background(), TextRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPClassifier_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPClassifierConfig{BaseURL: srv.URL})
	for i := 0; i < 10; i++ {
		_, err := c.ClassifyText(context.Background(), TextRequest{})
		require.ErrorIs(t, err, ErrClassifierUnavailable)
	}

	assert.Equal(t, int32(6), atomic.LoadInt32(&hits))
}

func TestHTTPClassifier_RawBodyPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`respuesta: {"score": 66}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPClassifierConfig{BaseURL: srv.URL})
	out, err := c.ClassifyText(context.Background(), TextRequest{})

	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `{"score": 66}`))
}

func TestHTTPClassifier_MissingBaseURL(t *testing.T) {
	c := NewHTTPClassifier(HTTPClassifierConfig{})
	_, err := c.ClassifyText(context.Background(), TextRequest{})
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}
