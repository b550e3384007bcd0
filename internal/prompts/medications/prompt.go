package medications

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

// SystemPrompt returns the system prompt for medication extraction.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for medication extraction.
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
	SystemPromptKey = "stages.medications.system"
	UserPromptKey   = "stages.medications.user"
)

// RegisterPrompts registers the medication extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Medication extraction system prompt - name/instruction/duration triples",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Medication extraction user prompt template",
	})
}
