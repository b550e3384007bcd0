package ocr

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

// SystemPrompt returns the system prompt for page transcription.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for one page.
func UserPrompt(pageNum, pageCount int) string {
	var buf bytes.Buffer
	data := struct {
		PageNum   int
		PageCount int
	}{PageNum: pageNum, PageCount: pageCount}
	if err := userTemplate.Execute(&buf, data); err != nil {
		// Fallback to raw template on error
		return userPromptTmpl
	}
	return buf.String()
}

// Prompt keys
const (
	SystemPromptKey = "stages.ocr.system"
	UserPromptKey   = "stages.ocr.user"
)

// RegisterPrompts registers the OCR prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Page transcription system prompt - faithful markdown OCR",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Page transcription user prompt template",
	})
}
