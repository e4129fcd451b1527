package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketgate/internal/observability"

	"github.com/sony/gobreaker"
)

const maxClassifierResponseBytes = 1 << 20

// HTTPClassifierConfig configures an OpenAI-compatible chat completions client.
type HTTPClassifierConfig struct {
	BaseURL     string
	APIKey      string
	TextModel   string
	VisionModel string
	HTTPClient  *http.Client
}

// HTTPClassifier calls a /chat/completions endpoint. All calls share one circuit breaker.
type HTTPClassifier struct {
	cfg     HTTPClassifierConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPClassifier returns a classifier client. Call deadlines come from the caller's context.
func NewHTTPClassifier(cfg HTTPClassifierConfig) *HTTPClassifier {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	settings := gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &HTTPClassifier{
		cfg:     cfg,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ClassifyText sends the listing text with the policy prompt as the system message.
func (c *HTTPClassifier) ClassifyText(ctx context.Context, req TextRequest) (string, error) {
	return c.complete(ctx, "text", chatRequest{
		Model:       c.cfg.TextModel,
		Temperature: req.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: req.Prompt},
			{Role: "user", Content: req.Content},
		},
	})
}

// ClassifyImage sends the image inline as a base64 data URL.
func (c *HTTPClassifier) ClassifyImage(ctx context.Context, req ImageRequest) (string, error) {
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)

	return c.complete(ctx, "image", chatRequest{
		Model:       c.cfg.VisionModel,
		Temperature: req.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: req.Prompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: "Analiza esta imagen de un anuncio."},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
	})
}

func (c *HTTPClassifier) complete(ctx context.Context, kind string, body chatRequest) (string, error) {
	ctx, span := observability.TraceClassifierCall(ctx, kind, body.Model)
	defer span.End()
	done := observability.TrackClassifierCall(kind)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, body)
	})
	done(err)
	if err != nil {
		observability.FailSpan(span, err)
		return "", fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	return out.(string), nil
}

func (c *HTTPClassifier) post(ctx context.Context, body chatRequest) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", errors.New("classifier base URL is not configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClassifierResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Not a chat completion envelope; let the caller try to find a verdict in the raw body.
		return string(data), nil
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("classifier returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
