// Package relevance implements the Relevance Filter (C9, §4.9): an
// optional keep/drop scorer over (title, teaser, matched_keyword,
// brand_name), fail-open on any scorer error, timeout, or missing
// credential.
//
// Grounded on the teacher's OpenAI summarizer
// (internal/infra/summarizer/openai.go): same circuit-breaker+retry
// wrapping shape, same go-openai client, same token-budget-via-truncation
// discipline — generalized from "summarize text" to "score keep/drop".
package relevance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/resilience/circuitbreaker"
	"mediascrape/internal/resilience/retry"
	"mediascrape/internal/utils/text"
)

// MaxInputTokens and MaxOutputTokens approximate the §4.9 budget
// ("~300 tokens in, ~5 tokens out"); tokens are approximated as
// runes/4, a common rough estimate for English/mixed text.
const (
	MaxInputTokens  = 300
	MaxOutputTokens = 5
	approxCharsPerToken = 4
)

// Scorer decides whether a candidate is relevant enough to keep.
type Scorer interface {
	ScoreKeep(ctx context.Context, in Input) (keep bool, err error)
}

// Input is the bounded context passed to a Scorer, per §4.9.
type Input struct {
	Title          string
	Teaser         string
	MatchedKeyword string
	BrandName      string
}

// Noop is the fail-open default Scorer: every candidate is kept. Used
// when no API key is configured, or wrapped around to recover from a
// failing OpenAI scorer.
type Noop struct{}

func (Noop) ScoreKeep(ctx context.Context, in Input) (bool, error) { return true, nil }

// OpenAIScorer scores candidates with a single chat-completion call,
// circuit-breaker- and retry-wrapped like the teacher's summarizer.
type OpenAIScorer struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
	timeout        time.Duration
}

func NewOpenAIScorer(apiKey, model string) *OpenAIScorer {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &OpenAIScorer{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.RelevanceFilterConfig()),
		retryConfig:    retry.AIConfig(),
		model:          model,
		timeout:        15 * time.Second,
	}
}

// ScoreKeep asks the model for a single keep/drop token. Any failure —
// timeout, circuit open, malformed response — is swallowed by the
// caller-side FailOpen wrapper, not here; ScoreKeep itself still returns
// the error so FailOpen can log it.
func (s *OpenAIScorer) ScoreKeep(ctx context.Context, in Input) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var keep bool
	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		cbResult, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return s.doScore(ctx, in)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("relevance filter unavailable: circuit breaker open")
			}
			return err
		}
		keep = cbResult.(bool)
		return nil
	})
	if retryErr != nil {
		return false, fmt.Errorf("relevance filter scoring failed: %w", retryErr)
	}
	return keep, nil
}

func (s *OpenAIScorer) doScore(ctx context.Context, in Input) (bool, error) {
	prompt := buildPrompt(in)
	inputTokens := text.CountRunes(prompt) / approxCharsPerToken
	if inputTokens > MaxInputTokens {
		slog.Warn("relevance filter prompt exceeds token budget, truncating",
			slog.Int("approx_tokens", inputTokens), slog.Int("budget", MaxInputTokens))
		prompt = prompt[:MaxInputTokens*approxCharsPerToken]
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: MaxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
	})
	if err != nil {
		return false, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("openai api returned empty response")
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch {
	case strings.HasPrefix(answer, "keep"):
		return true, nil
	case strings.HasPrefix(answer, "drop"):
		return false, nil
	}
	return false, fmt.Errorf("openai api returned malformed answer %q", answer)
}

func buildPrompt(in Input) string {
	return fmt.Sprintf(
		"Brand: %s\nMatched keyword: %s\nTitle: %s\nTeaser: %s\n\n"+
			"Is this article genuinely about the brand and keyword above, "+
			"as opposed to an unrelated use of the same words? "+
			"Reply with exactly one word: keep or drop.",
		in.BrandName, in.MatchedKeyword, in.Title, in.Teaser)
}

// FailOpen wraps a Scorer so that any error — including a missing
// credential at construction time — results in keep=true rather than
// propagating, per §4.9's fail-open contract.
type FailOpen struct {
	inner Scorer
}

func NewFailOpen(inner Scorer) *FailOpen {
	if inner == nil {
		inner = Noop{}
	}
	return &FailOpen{inner: inner}
}

func (f *FailOpen) ScoreKeep(ctx context.Context, in Input) (bool, error) {
	keep, err := f.inner.ScoreKeep(ctx, in)
	if err != nil {
		slog.Warn("relevance filter failed open", slog.Any("error", err))
		return true, nil
	}
	return keep, nil
}

// Filter runs the Scorer over every candidate, keeping those scored
// keep=true (or any candidate the scorer fails open on).
func Filter(ctx context.Context, scorer Scorer, brandName string, candidates []entity.RawCandidate) []entity.RawCandidate {
	out := make([]entity.RawCandidate, 0, len(candidates))
	for _, c := range candidates {
		keep, _ := scorer.ScoreKeep(ctx, Input{
			Title:          c.Title,
			Teaser:         c.Teaser,
			MatchedKeyword: c.MatchedKeyword,
			BrandName:      brandName,
		})
		if keep {
			out = append(out, c)
		}
	}
	return out
}
