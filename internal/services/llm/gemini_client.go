package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/referolabs/refero/internal/interfaces"
)

// GeminiClient implements interfaces.LLMClient using the Gemini API.
// Structured requests use Gemini's native response schema support.
type GeminiClient struct {
	logger      arbor.ILogger
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	retry       *RetryConfig
}

// NewGeminiClient creates a Gemini chat client
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float32, timeout time.Duration, minInterval time.Duration, retry *RetryConfig, logger arbor.ILogger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	c := &GeminiClient{
		logger:      logger,
		client:      client,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		retry:       retry,
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Msg("Gemini client initialized")

	return c, nil
}

// Name returns the provider identifier
func (c *GeminiClient) Name() string { return "gemini" }

// Complete sends a single-turn completion request
func (c *GeminiClient) Complete(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
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

func (c *GeminiClient) generateCompletion(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertToGenaiSchema(req.Schema)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	startTime := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Gemini API")
	}

	c.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(req.Prompt)).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini completion finished")

	out := &interfaces.CompletionResponse{
		Text:  text.String(),
		Model: model,
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
