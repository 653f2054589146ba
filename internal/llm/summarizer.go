// Package llm produces narrative summaries through an OpenAI-compatible chat API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stockguardian/guardian-bot/internal/tracing"
)

// MaxBullets caps how many bullets go into one prompt
const MaxBullets = 30

// Summarizer turns bullets about a subject into a short narrative.
// An empty result with a nil error means no summary is available.
type Summarizer interface {
	Summarize(ctx context.Context, subject string, bullets []string) (string, error)
}

// NoopSummarizer is used when no model is configured
type NoopSummarizer struct{}

func (NoopSummarizer) Summarize(context.Context, string, []string) (string, error) {
	return "", nil
}

// OpenAISummarizer calls /chat/completions on an OpenAI-compatible endpoint
type OpenAISummarizer struct {
	baseURL string
	apiKey  string
	model   string
	client  *resty.Client
}

// New returns an OpenAISummarizer, or a NoopSummarizer when baseURL or apiKey is empty
func New(baseURL, apiKey, model string) Summarizer {
	if baseURL == "" || apiKey == "" {
		return NoopSummarizer{}
	}
	return &OpenAISummarizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  resty.New().SetTimeout(25 * time.Second),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, subject string, bullets []string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "llm.summarize")
	defer span.End()

	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model:       s.model,
			Messages:    []chatMessage{{Role: "user", Content: Prompt(subject, bullets)}},
			Temperature: 0.2,
		}).
		Post(s.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return "", fmt.Errorf("summarizer returned status %d", resp.StatusCode())
	}

	var r chatResponse
	if err := json.Unmarshal(resp.Body(), &r); err != nil {
		return "", fmt.Errorf("failed to parse summarizer response: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", errors.New("summarizer returned no choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}

// Prompt builds the retail-investor briefing request for at most MaxBullets bullets
func Prompt(subject string, bullets []string) string {
	if len(bullets) > MaxBullets {
		bullets = bullets[:MaxBullets]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the latest situation of %s for retail investors. Input points:", subject)
	for _, bullet := range bullets {
		b.WriteString(" - ")
		b.WriteString(bullet)
	}
	b.WriteString(" Output format: - 3 key points - 1 risk warning - 1 thing to watch. Keep it concise.")
	return b.String()
}
