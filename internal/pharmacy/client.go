// Package pharmacy fetches product search pages from an online pharmacy
// catalog and flattens them into LLM-ready text.
package pharmacy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/net/html"

	"github.com/shusrusha/shusrusha/internal/config"
)

const (
	defaultBaseURL      = "https://pharmeasy.in"
	defaultMaxContentKB = 40
	defaultMaxRetries   = 3

	// Catalog pages reject obvious bot user agents.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client fetches search result pages from the pharmacy catalog.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxContentKB int
	maxRetries   int
	logger       *slog.Logger
}

// NewClient creates a catalog client from configuration.
func NewClient(cfg config.PharmacyCfg, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxContentKB := cfg.MaxContentKB
	if maxContentKB <= 0 {
		maxContentKB = defaultMaxContentKB
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		maxContentKB: maxContentKB,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// SearchURL returns the catalog search URL for a term.
func (c *Client) SearchURL(term string) string {
	return c.baseURL + "/search/all?name=" + url.QueryEscape(term)
}

// Search fetches the search results page for a medication name and returns
// the page flattened to text, with product links rendered as [name](url).
// The result is truncated to the configured content budget.
func (c *Client) Search(ctx context.Context, term string) (string, error) {
	searchURL := c.SearchURL(term)
	start := time.Now()

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", userAgent)
			req.Header.Set("Accept", "text/html,application/xhtml+xml")
			req.Header.Set("Accept-Language", "en-US,en;q=0.9")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("catalog returned status %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(err)
				}
				return err
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(1*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("fetching catalog search for %q: %w", term, err)
	}

	text := FlattenHTML(string(body), c.baseURL)
	truncated := false
	if limit := c.maxContentKB * 1024; len(text) > limit {
		text = text[:limit]
		truncated = true
	}

	c.logger.Debug("catalog search fetched",
		"term", term,
		"bytes", len(body),
		"text_bytes", len(text),
		"truncated", truncated,
		"duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

// FlattenHTML converts a catalog page to plain text. Anchor elements become
// [text](href) so product links survive the flattening; script and style
// content is dropped. Relative hrefs are resolved against baseURL.
func FlattenHTML(page, baseURL string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		// Parse errors are rare; raw text is still usable downstream.
		return page
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "a":
				if href := attr(n, "href"); href != "" {
					label := strings.TrimSpace(nodeText(n))
					if label != "" {
						sb.WriteString("[")
						sb.WriteString(label)
						sb.WriteString("](")
						sb.WriteString(resolveHref(href, baseURL))
						sb.WriteString(")\n")
					}
					return
				}
			}
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return collapseBlankLines(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func resolveHref(href, baseURL string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return baseURL + href
	}
	return baseURL + "/" + href
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
