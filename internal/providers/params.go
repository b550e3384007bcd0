package providers

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// ModelFamily selects how logical call parameters map onto the wire
// request for a given model line. The set is closed: detection happens
// in exactly one place (FamilyFor) instead of ad hoc prefix checks at
// call sites.
type ModelFamily int

const (
	// FamilyChat covers standard chat models (gpt-4o, gpt-4.1, ...):
	// max_tokens, caller temperature, response_format as requested.
	FamilyChat ModelFamily = iota

	// FamilyFixedSampling covers gpt-5 era models that only support
	// their default sampling: max_completion_tokens, temperature
	// forced to 1.0, response_format as requested.
	FamilyFixedSampling

	// FamilyReasoning covers reasoning-only models (o1, o3, o4-mini):
	// max_completion_tokens only, no temperature, no response_format.
	FamilyReasoning
)

func (f ModelFamily) String() string {
	switch f {
	case FamilyFixedSampling:
		return "fixed_sampling"
	case FamilyReasoning:
		return "reasoning"
	default:
		return "chat"
	}
}

// familyPrefixes is checked in order; first match wins. Longer or more
// specific prefixes must come before shorter ones.
var familyPrefixes = []struct {
	prefix string
	family ModelFamily
}{
	{"o1", FamilyReasoning},
	{"o3", FamilyReasoning},
	{"o4", FamilyReasoning},
	{"gpt-5", FamilyFixedSampling},
	{"gpt-4", FamilyChat},
	{"gpt-3.5", FamilyChat},
	{"chatgpt", FamilyChat},
}

// FamilyFor resolves the model family for a model identifier.
// Unrecognized identifiers fall back to FamilyChat with a warning; the
// call itself will fail fast if the shape is actually wrong, so this
// is never fatal.
func FamilyFor(model string) ModelFamily {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, fp := range familyPrefixes {
		if strings.HasPrefix(m, fp.prefix) {
			return fp.family
		}
	}
	slog.Default().Warn("unrecognized model identifier, using chat parameter shape", "model", model)
	return FamilyChat
}

// ChatParams is the concrete parameter set submitted to the chat
// completions endpoint.
type ChatParams struct {
	Model               string          `json:"model"`
	Messages            []wireMessage   `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	MaxTokens           int             `json:"max_tokens,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []wireContent
}

type wireContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// BuildChatParams translates a logical request into the parameter
// mapping the target model family accepts. Pure function, no network.
func BuildChatParams(model string, req *ChatRequest) ChatParams {
	params := ChatParams{Model: model}

	switch FamilyFor(model) {
	case FamilyFixedSampling:
		params.MaxCompletionTokens = req.MaxOutputTokens
		t := 1.0 // only supported value
		params.Temperature = &t
		if len(req.JSONSchema) > 0 {
			params.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: req.JSONSchema}
		}
	case FamilyReasoning:
		params.MaxCompletionTokens = req.MaxOutputTokens
	default:
		params.MaxTokens = req.MaxOutputTokens
		if req.Temperature != 0 {
			t := req.Temperature
			params.Temperature = &t
		}
		if len(req.JSONSchema) > 0 {
			params.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: req.JSONSchema}
		}
	}

	return params
}
