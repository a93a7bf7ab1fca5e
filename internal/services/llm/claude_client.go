package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/referolabs/refero/internal/interfaces"
)

// ClaudeClient implements interfaces.LLMClient using the Anthropic API
type ClaudeClient struct {
	logger      arbor.ILogger
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	retry       *RetryConfig
}

// NewClaudeClient creates a Claude chat client
func NewClaudeClient(apiKey, model string, maxTokens int, temperature float32, timeout time.Duration, minInterval time.Duration, retry *RetryConfig, logger arbor.ILogger) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	c := &ClaudeClient{
		logger:      logger,
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		retry:       retry,
	}

	logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Dur("timeout", timeout).
		Msg("Claude client initialized")

	return c, nil
}

// Name returns the provider identifier
func (c *ClaudeClient) Name() string { return "claude" }

// Complete sends a single-turn completion request
func (c *ClaudeClient) Complete(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(timeoutCtx); err != nil {
		return nil, err
	}

	return completeWithRetry(timeoutCtx, c.retry, c.logger, c.Name(), func(callCtx context.Context) (*interfaces.CompletionResponse, error) {
		return c.generateCompletion(callCtx, req)
	})
}

func (c *ClaudeClient) generateCompletion(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	prompt := req.Prompt
	if req.Schema != nil {
		prompt += schemaPromptSuffix(req.Schema)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(float64(temperature))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	startTime := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	c.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude completion finished")

	return &interfaces.CompletionResponse{
		Text:         text.String(),
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
