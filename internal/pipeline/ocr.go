package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/shusrusha/shusrusha/internal/prompts/ocr"
	"github.com/shusrusha/shusrusha/internal/providers"
)

// RunOCR transcribes every page into markdown and joins the results in
// page order, one page-boundary marker per image. A failed page becomes
// an explicit placeholder; the stage never aborts on per-page errors.
func (r *Runner) RunOCR(ctx context.Context, st *State) error {
	if len(st.Images) == 0 {
		return ErrNoImages
	}

	pageCount := len(st.Images)
	parts := make([]string, 0, pageCount)
	for i, page := range st.Images {
		pageNum := i + 1
		text, err := r.transcribePage(ctx, page, pageNum, pageCount, st.RunID)
		if err != nil {
			r.logger.Warn("page transcription failed",
				"run_id", st.RunID, "page", pageNum, "error", err)
			text = fmt.Sprintf("*Page %d could not be transcribed.*", pageNum)
		}
		parts = append(parts, fmt.Sprintf("<!-- page %d -->\n%s", pageNum, text))
	}

	st.Markdown = strings.Join(parts, "\n\n")
	return nil
}

func (r *Runner) transcribePage(ctx context.Context, page Page, pageNum, pageCount int, runID string) (string, error) {
	user := r.userPrompt(ocr.UserPromptKey,
		struct{ PageNum, PageCount int }{pageNum, pageCount},
		ocr.UserPrompt(pageNum, pageCount))
	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: r.systemPrompt(ocr.SystemPromptKey, ocr.SystemPrompt())},
			{Role: "user", Content: user, Images: [][]byte{page.Data}},
		},
		Model:           r.cfg.OCRModel,
		MaxOutputTokens: 4096,
		Timeout:         r.cfg.RequestTimeout,
		RequestID:       fmt.Sprintf("%s-ocr-%d", runID, pageNum),
	}

	result, err := r.llm.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("%s: %s", result.ErrorType, result.ErrorMessage)
	}

	text := result.Content
	if stripped := providers.StripCodeFences(text); stripped != "" {
		text = stripped
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty transcription")
	}
	return text, nil
}
