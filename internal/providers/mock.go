package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockResponse is one scripted reply for the mock client.
type MockResponse struct {
	Text string
	JSON json.RawMessage
	Err  string
}

// MockClient is an LLMClient for testing. Responses can be scripted
// per-call (Responses queue), computed (Handler), or fixed
// (ResponseText/ResponseJSON).
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	// Responses is consumed in order before falling back to
	// ResponseText/ResponseJSON. Useful for multi-call stages.
	Responses []MockResponse

	// Handler, when set, overrides all other response configuration.
	Handler func(req *ChatRequest) MockResponse

	// State
	mu           sync.Mutex
	requestCount atomic.Int64
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.Success = false
		result.ErrorType = "context_cancelled"
		result.ErrorMessage = ctx.Err().Error()
		result.TotalTime = time.Since(start)
		return result, ctx.Err()
	}

	resp := c.nextResponse(req)
	if resp.Err != "" {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = resp.Err
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("%s", resp.Err)
	}

	result.Success = true
	result.Content = resp.Text
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	// Simulate token counting
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	completionTokens := len(resp.Text) / 4

	result.PromptTokens = promptTokens
	result.CompletionTokens = completionTokens
	result.TotalTokens = promptTokens + completionTokens

	// Handle structured output
	if len(req.JSONSchema) > 0 {
		raw := resp.JSON
		if len(raw) == 0 && resp.Text != "" {
			raw = json.RawMessage(resp.Text)
		}
		if len(raw) > 0 {
			parsed, err := parseStructuredJSON(string(raw))
			if err != nil {
				result.Success = false
				result.ErrorType = "json_parse"
				result.ErrorMessage = err.Error()
				return result, nil
			}
			result.ParsedJSON = parsed
			result.Content = string(raw)
		}
	}

	return result, nil
}

// nextResponse picks the reply for this call.
func (c *MockClient) nextResponse(req *ChatRequest) MockResponse {
	if c.Handler != nil {
		return c.Handler(req)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp
	}
	return MockResponse{Text: c.ResponseText, JSON: c.ResponseJSON}
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of all requests received so far.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset resets the request counter and recorded requests.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
