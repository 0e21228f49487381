// Package extract runs the per-parameter LLM extraction calls. A shared
// token-bucket limiter throttles all calls; transient failures retry with
// exponential backoff, and exhausted retries degrade that parameter to a
// not-found result instead of failing the whole document.
package extract

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"tenderscan/internal/logger"
	"tenderscan/models"
)

const (
	// Sustained token budget kept under the provider's advertised limit to
	// leave safety margin.
	tokensPerSecond = 30000
	burstTokens     = 60000

	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// RateLimitError marks a call rejected by the provider's rate limiter.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by provider: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// isRateLimitError detects provider rate-limit rejections from the error
// text, since the SDK surfaces them as plain HTTP errors.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "Too Many Requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Generator produces a model completion for one system/user prompt pair.
// The production implementation calls the OpenAI Responses API; tests
// substitute a fake.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIGenerator calls the OpenAI Responses API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for the given model name.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	response, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(g.model),
		Instructions: openai.String(system),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	return response.OutputText(), nil
}

// Client wraps a Generator with rate limiting, retries and response parsing.
type Client struct {
	gen        Generator
	limiter    *rate.Limiter
	maxRetries int
	timeout    time.Duration
	log        logger.Logger
}

// NewClient creates an extraction client. maxRetries counts retries after
// the first attempt; timeout bounds each individual call.
func NewClient(gen Generator, maxRetries int, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		gen:        gen,
		limiter:    rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens),
		maxRetries: maxRetries,
		timeout:    timeout,
		log:        log,
	}
}

// Extract runs one extraction call for a parameter. An empty prompt means
// no pages matched, which short-circuits to a not-found result. Any call
// failure is retried with exponential backoff; after the retry budget is
// spent the parameter degrades to not-found rather than aborting the run.
func (c *Client) Extract(ctx context.Context, parameter, system, prompt string, pageNumbers []int) *models.ExtractionResult {
	if prompt == "" {
		c.log.Warn("no prompt for parameter %q, skipping extraction", parameter)
		return notFoundResult(parameter, pageNumbers)
	}

	raw, err := c.callWithRetry(ctx, parameter, system, prompt)
	if err != nil {
		c.log.Error("extraction failed for parameter %q: %v", parameter, err)
		return notFoundResult(parameter, pageNumbers)
	}

	answer, details := ParseResponse(raw)
	result := &models.ExtractionResult{
		Parameter:   parameter,
		Value:       answer,
		Details:     details,
		SourcePages: pageNumbers,
	}
	result.Confidence = ResponseConfidence(answer, details)
	c.log.Info("extracted %q: found=%t confidence=%.2f", parameter, result.Found(), result.Confidence)
	return result
}

// ExtractAll runs extraction for every match in order, using the provided
// prompt builder function. Extraction stops early if the context is done.
func (c *Client) ExtractAll(ctx context.Context, matches []*models.ParameterMatch, system string, build func(*models.ParameterMatch) string) ([]*models.ExtractionResult, error) {
	results := make([]*models.ExtractionResult, 0, len(matches))
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		prompt := build(match)
		results = append(results, c.Extract(ctx, match.Parameter, system, prompt, match.PageNumbers()))
	}
	return results, nil
}

func (c *Client) callWithRetry(ctx context.Context, parameter, system, prompt string) (string, error) {
	tokens := len(prompt) / 4
	if tokens > burstTokens {
		tokens = burstTokens
	}
	if err := c.limiter.WaitN(ctx, tokens); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseRetryDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			c.log.Info("retrying %q: attempt %d/%d after %v", parameter, attempt, c.maxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		raw, err := c.gen.Generate(callCtx, system, prompt)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if attempt > 0 {
				c.log.Info("retry succeeded for %q on attempt %d", parameter, attempt)
			}
			return raw, nil
		}
		if isRateLimitError(err) {
			err = &RateLimitError{Err: err}
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("call failed for %q on attempt %d/%d: %v", parameter, attempt+1, c.maxRetries+1, err)
	}
	return "", fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func notFoundResult(parameter string, pageNumbers []int) *models.ExtractionResult {
	return &models.ExtractionResult{
		Parameter:   parameter,
		Value:       models.NotFound,
		Details:     models.NotFound,
		Confidence:  0.0,
		SourcePages: pageNumbers,
	}
}
