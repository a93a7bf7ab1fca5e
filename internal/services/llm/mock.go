package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/referolabs/refero/internal/interfaces"
)

// MockRule maps a prompt substring to a canned response
type MockRule struct {
	Contains string
	Response string
	Err      error
}

// MockClient is a deterministic in-memory client for tests. Responses
// are chosen by the first rule whose substring appears in the prompt;
// unmatched prompts get a stable echo of their first line.
type MockClient struct {
	mu    sync.Mutex
	rules []MockRule
	calls []interfaces.CompletionRequest
}

// NewMockClient creates a mock client with the given rules
func NewMockClient(rules ...MockRule) *MockClient {
	return &MockClient{rules: rules}
}

// Name returns the provider identifier
func (m *MockClient) Name() string { return "mock" }

// Complete records the request and returns the matching canned response
func (m *MockClient) Complete(_ context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, *req)

	for _, rule := range m.rules {
		if strings.Contains(req.Prompt, rule.Contains) {
			if rule.Err != nil {
				return nil, rule.Err
			}
			return &interfaces.CompletionResponse{Text: rule.Response, Model: "mock"}, nil
		}
	}

	firstLine := req.Prompt
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	return &interfaces.CompletionResponse{
		Text:  fmt.Sprintf("mock response for: %s", strings.TrimSpace(firstLine)),
		Model: "mock",
	}, nil
}

// CallCount returns how many completions were requested
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded requests
func (m *MockClient) Calls() []interfaces.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interfaces.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
