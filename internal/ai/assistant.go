// Package ai implements the AI collaborators for the check pipeline:
// selector repair (self-healing) and change summarization. Both degrade
// gracefully when the AI service is unavailable; a failed collaborator
// call never fails a check on its own.
package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

const (
	// ModelDefault handles selector repair and image comparisons
	ModelDefault = "claude-sonnet-4-5-20250929"

	// ModelSummary is the cost-efficient model for text summaries
	ModelSummary = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the default model, checking PAGEWATCH_MODEL env var first
func GetDefaultModel() string {
	if model := os.Getenv("PAGEWATCH_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// GetSummaryModel returns the summarization model, checking PAGEWATCH_MODEL_SUMMARY first
func GetSummaryModel() string {
	if model := os.Getenv("PAGEWATCH_MODEL_SUMMARY"); model != "" {
		return model
	}
	return ModelSummary
}

// Assistant is the shared client behind both collaborators. One
// Assistant serves all concurrent checks; the semaphore caps concurrent
// API calls and the circuit breaker sheds load when the service is down.
type Assistant struct {
	client         *anthropic.Client
	model          string
	summaryModel   string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
}

// Config holds assistant configuration
type Config struct {
	APIKey       string      // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model        string      // Model for repair and vision calls (default: ModelDefault)
	SummaryModel string      // Model for text summaries (default: ModelSummary)
	Retry        RetryConfig // Retry configuration (uses defaults if not specified)
}

// New creates a new AI assistant
func New(cfg *Config) (*Assistant, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}
	summaryModel := cfg.SummaryModel
	if summaryModel == "" {
		summaryModel = GetSummaryModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Assistant{
		client:         &client,
		model:          model,
		summaryModel:   summaryModel,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
	}, nil
}

// callText makes a text-only API call and returns the concatenated text blocks
func (a *Assistant) callText(ctx context.Context, operation, model, prompt string, maxTokens int64) (string, error) {
	start := time.Now()

	var response *anthropic.Message
	err := a.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := a.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	fmt.Printf("AI %s call: input=%d tokens, output=%d tokens, duration=%v\n",
		operation, response.Usage.InputTokens, response.Usage.OutputTokens, time.Since(start))
	return text, nil
}

// callVision makes an API call carrying two PNG images plus a text prompt
func (a *Assistant) callVision(ctx context.Context, operation, prompt string, images [][]byte, maxTokens int64) (string, error) {
	start := time.Now()

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png",
			base64.StdEncoding.EncodeToString(img)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	var response *anthropic.Message
	err := a.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := a.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(blocks...),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	fmt.Printf("AI %s call: input=%d tokens, output=%d tokens, duration=%v\n",
		operation, response.Usage.InputTokens, response.Usage.OutputTokens, time.Since(start))
	return text, nil
}
