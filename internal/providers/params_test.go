package providers

import (
	"encoding/json"
	"testing"
)

func TestFamilyFor(t *testing.T) {
	tests := []struct {
		model string
		want  ModelFamily
	}{
		{"gpt-4o", FamilyChat},
		{"gpt-4o-mini", FamilyChat},
		{"gpt-4.1", FamilyChat},
		{"gpt-3.5-turbo", FamilyChat},
		{"chatgpt-4o-latest", FamilyChat},
		{"gpt-5", FamilyFixedSampling},
		{"gpt-5-mini", FamilyFixedSampling},
		{"o1", FamilyReasoning},
		{"o1-preview", FamilyReasoning},
		{"o3-mini", FamilyReasoning},
		{"o4-mini", FamilyReasoning},
		{"GPT-4O", FamilyChat},               // case insensitive
		{"some-future-model", FamilyChat},    // unrecognized falls back
		{"  gpt-5  ", FamilyFixedSampling},   // whitespace tolerated
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := FamilyFor(tt.model); got != tt.want {
				t.Errorf("FamilyFor(%q) = %s, want %s", tt.model, got, tt.want)
			}
		})
	}
}

func TestBuildChatParamsChat(t *testing.T) {
	req := &ChatRequest{
		Temperature:     0.3,
		MaxOutputTokens: 2048,
		JSONSchema:      json.RawMessage(`{"name":"x","schema":{"type":"object"}}`),
	}
	params := BuildChatParams("gpt-4o-mini", req)

	if params.MaxTokens != 2048 {
		t.Errorf("expected max_tokens 2048, got %d", params.MaxTokens)
	}
	if params.MaxCompletionTokens != 0 {
		t.Errorf("chat models must not set max_completion_tokens, got %d", params.MaxCompletionTokens)
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", params.Temperature)
	}
	if params.ResponseFormat == nil || params.ResponseFormat.Type != "json_schema" {
		t.Errorf("expected json_schema response format, got %v", params.ResponseFormat)
	}
}

func TestBuildChatParamsFixedSampling(t *testing.T) {
	req := &ChatRequest{
		Temperature:     0.3,
		MaxOutputTokens: 2048,
		JSONSchema:      json.RawMessage(`{"name":"x","schema":{"type":"object"}}`),
	}
	params := BuildChatParams("gpt-5-mini", req)

	if params.MaxCompletionTokens != 2048 {
		t.Errorf("expected max_completion_tokens 2048, got %d", params.MaxCompletionTokens)
	}
	if params.MaxTokens != 0 {
		t.Errorf("fixed-sampling models must not set max_tokens, got %d", params.MaxTokens)
	}
	if params.Temperature == nil || *params.Temperature != 1.0 {
		t.Errorf("temperature must be forced to 1.0, got %v", params.Temperature)
	}
	if params.ResponseFormat == nil {
		t.Error("expected response format to pass through")
	}
}

func TestBuildChatParamsReasoning(t *testing.T) {
	req := &ChatRequest{
		Temperature:     0.3,
		MaxOutputTokens: 2048,
		JSONSchema:      json.RawMessage(`{"name":"x","schema":{"type":"object"}}`),
	}
	params := BuildChatParams("o3-mini", req)

	if params.MaxCompletionTokens != 2048 {
		t.Errorf("expected max_completion_tokens 2048, got %d", params.MaxCompletionTokens)
	}
	if params.Temperature != nil {
		t.Errorf("reasoning models must omit temperature, got %v", *params.Temperature)
	}
	if params.ResponseFormat != nil {
		t.Error("reasoning models must omit response format")
	}
}

func TestBuildChatParamsWireShape(t *testing.T) {
	req := &ChatRequest{MaxOutputTokens: 100}
	params := BuildChatParams("o1", req)

	data, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["max_tokens"]; ok {
		t.Error("max_tokens must be omitted when zero")
	}
	if _, ok := m["temperature"]; ok {
		t.Error("temperature must be omitted when nil")
	}
	if m["max_completion_tokens"] != float64(100) {
		t.Errorf("missing max_completion_tokens: %v", m)
	}
}
