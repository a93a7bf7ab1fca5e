package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/referolabs/refero/internal/interfaces"
)

// OpenAIClient implements interfaces.LLMClient using the OpenAI chat
// completions API. Azure OpenAI is supported through a custom base URL.
type OpenAIClient struct {
	logger      arbor.ILogger
	client      openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	retry       *RetryConfig
	azure       bool
}

// NewOpenAIClient creates an OpenAI chat client. When baseURL is set the
// client talks to an Azure OpenAI deployment instead of api.openai.com.
func NewOpenAIClient(apiKey, baseURL, model string, temperature float32, timeout time.Duration, minInterval time.Duration, retry *RetryConfig, logger arbor.ILogger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o"
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	c := &OpenAIClient{
		logger:      logger,
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		retry:       retry,
		azure:       baseURL != "",
	}

	logger.Debug().
		Str("model", model).
		Bool("azure", c.azure).
		Dur("timeout", timeout).
		Msg("OpenAI client initialized")

	return c, nil
}

// Name returns the provider identifier
func (c *OpenAIClient) Name() string {
	if c.azure {
		return "azure"
	}
	return "openai"
}

// Complete sends a single-turn completion request
func (c *OpenAIClient) Complete(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
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

func (c *OpenAIClient) generateCompletion(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	prompt := req.Prompt
	// No native schema enforcement here; the schema travels in the prompt
	// and the caller repairs the JSON on the way back.
	if req.Schema != nil {
		prompt += schemaPromptSuffix(req.Schema)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	model := req.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	if temperature > 0 {
		params.Temperature = openai.Float(float64(temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	startTime := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no response generated from OpenAI API")
	}

	c.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(resp.Choices[0].Message.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("OpenAI completion finished")

	return &interfaces.CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
