package diagnoses

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/shusrusha/shusrusha/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// SystemPrompt returns the system prompt for diagnosis extraction.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for diagnosis extraction.
func UserPrompt(markdown string) string {
	var buf bytes.Buffer
	data := struct{ Markdown string }{Markdown: markdown}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// Prompt keys
const (
	SystemPromptKey = "stages.diagnoses.system"
	UserPromptKey   = "stages.diagnoses.user"
)

// RegisterPrompts registers the diagnosis extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Diagnosis extraction system prompt - conditions and lab findings",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Diagnosis extraction user prompt template",
	})
}
