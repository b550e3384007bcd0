// Package ingest loads discharge-summary inputs (images or PDFs) into
// ordered page buffers for the pipeline.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/shusrusha/shusrusha/internal/pipeline"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LoadPages reads the given input files in argument order. Image files
// become one page each; PDFs are rendered one page per PDF page via
// pdftoppm (poppler-utils).
func LoadPages(paths []string, logger *slog.Logger) ([]pipeline.Page, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files provided")
	}

	var pages []pipeline.Page
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("input not found: %s", path)
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case imageExtensions[ext]:
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading image %s: %w", path, err)
			}
			pages = append(pages, pipeline.Page{Name: filepath.Base(path), Data: data})
		case ext == ".pdf":
			rendered, err := renderPDF(path, logger)
			if err != nil {
				return nil, fmt.Errorf("rendering %s: %w", path, err)
			}
			pages = append(pages, rendered...)
		default:
			return nil, fmt.Errorf("unsupported input type: %s", path)
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages loaded from inputs")
	}
	logger.Debug("inputs loaded", "files", len(paths), "pages", len(pages))
	return pages, nil
}

// renderPDF renders every page of a PDF to PNG buffers in page order.
// Pages render concurrently; ordering is restored at gather time.
func renderPDF(pdfPath string, logger *slog.Logger) ([]pipeline.Page, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	logger.Debug("rendering PDF", "file", filepath.Base(pdfPath), "pages", pageCount)

	type result struct {
		pageNum int
		data    []byte
		err     error
	}

	results := make(chan result, pageCount)
	sem := make(chan struct{}, runtime.NumCPU())

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(pageNum int) {
			defer func() { <-sem }() // release
			data, err := renderPage(pdfPath, pageNum)
			results <- result{pageNum: pageNum, data: data, err: err}
		}(page)
	}

	rendered := make([][]byte, pageCount)
	for i := 0; i < pageCount; i++ {
		r := <-results
		if r.err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", r.pageNum, r.err)
		}
		rendered[r.pageNum-1] = r.data
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	pages := make([]pipeline.Page, pageCount)
	for i, data := range rendered {
		pages[i] = pipeline.Page{
			Name: fmt.Sprintf("%s_page_%04d.png", base, i+1),
			Data: data,
		}
	}
	return pages, nil
}

// renderPage renders a single PDF page using pdftoppm (poppler-utils).
func renderPage(pdfPath string, pageNum int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "shusrusha-page-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	// -r 300: resolution in DPI
	// -singlefile: don't add page number suffix
	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", "300",
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("reading rendered page: %w", err)
	}
	return data, nil
}
