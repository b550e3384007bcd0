package products

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

// SystemPrompt returns the system prompt for catalog page parsing.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for catalog page parsing.
func UserPrompt(query, content string) string {
	var buf bytes.Buffer
	data := struct {
		Query   string
		Content string
	}{Query: query, Content: content}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// Prompt keys
const (
	SystemPromptKey = "stages.products.system"
	UserPromptKey   = "stages.products.user"
)

// RegisterPrompts registers the catalog parsing prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Catalog page parsing system prompt - candidate name/URL pairs",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Catalog page parsing user prompt template",
	})
}
