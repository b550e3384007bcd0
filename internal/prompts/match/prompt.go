package match

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/shusrusha/shusrusha/internal/prompts"
	"github.com/shusrusha/shusrusha/internal/prompts/products"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// SystemPrompt returns the system prompt for product matching.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData carries the medication and candidate set into the template.
type UserPromptData struct {
	Name         string
	Strength     string
	Form         string
	Instructions string
	Diagnoses    string
	Candidates   []products.Product
}

// UserPrompt builds the user prompt for product matching.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// FormatDiagnoses joins condition names for prompt context.
func FormatDiagnoses(conditions []string) string {
	return strings.Join(conditions, ", ")
}

// Prompt keys
const (
	SystemPromptKey = "stages.match.system"
	UserPromptKey   = "stages.match.user"
)

// RegisterPrompts registers the product matching prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Product matching system prompt - hierarchical scoring and classification",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Product matching user prompt template",
	})
}
