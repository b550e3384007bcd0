// Package prompts provides prompt management with embedded defaults and
// runtime overrides.
//
// Embedded .tmpl files in code are the source of truth for defaults; an
// operator can override individual prompts at runtime (e.g., to tune a
// regional extraction prompt) without rebuilding.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: stages.diagnoses.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"` // true if from a runtime override
}
