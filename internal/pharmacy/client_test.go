package pharmacy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shusrusha/shusrusha/internal/config"
)

const samplePage = `<html><head><title>Search</title>
<script>window.__DATA__ = {"junk": true};</script>
<style>.card { color: red; }</style>
</head><body>
<h1>Results for dolo</h1>
<div class="card"><a href="/online-medicine-order/dolo-650mg-tablet-44140">Dolo 650mg Strip Of 15 Tablets</a><span>MRP 33.60</span></div>
<div class="card"><a href="https://pharmeasy.in/online-medicine-order/dolo-250mg-suspension-99120">Dolo 250mg Suspension</a></div>
</body></html>`

func TestSearchFlattensPage(t *testing.T) {
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.String())
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	client := NewClient(config.PharmacyCfg{BaseURL: server.URL}, nil)
	text, err := client.Search(context.Background(), "dolo 650")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if path := gotPath.Load().(string); path != "/search/all?name=dolo+650" {
		t.Errorf("unexpected search path: %s", path)
	}
	if !strings.Contains(text, "[Dolo 650mg Strip Of 15 Tablets]("+server.URL+"/online-medicine-order/dolo-650mg-tablet-44140)") {
		t.Errorf("relative product link not rendered:\n%s", text)
	}
	if !strings.Contains(text, "[Dolo 250mg Suspension](https://pharmeasy.in/online-medicine-order/dolo-250mg-suspension-99120)") {
		t.Errorf("absolute product link not rendered:\n%s", text)
	}
	if strings.Contains(text, "__DATA__") || strings.Contains(text, "color: red") {
		t.Errorf("script/style content leaked into text:\n%s", text)
	}
	if !strings.Contains(text, "MRP 33.60") {
		t.Errorf("page text missing:\n%s", text)
	}
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	client := NewClient(config.PharmacyCfg{BaseURL: server.URL, MaxRetries: 3}, nil)
	client.httpClient = server.Client()

	if _, err := client.Search(context.Background(), "dolo"); err != nil {
		t.Fatalf("Search failed after retry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestSearchDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(config.PharmacyCfg{BaseURL: server.URL, MaxRetries: 3}, nil)
	if _, err := client.Search(context.Background(), "nosuchdrug"); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 request for 404, got %d", got)
	}
}

func TestSearchTruncatesContent(t *testing.T) {
	big := "<html><body>" + strings.Repeat("<p>padding line for truncation</p>", 5000) + "</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(big))
	}))
	defer server.Close()

	client := NewClient(config.PharmacyCfg{BaseURL: server.URL, MaxContentKB: 1}, nil)
	text, err := client.Search(context.Background(), "dolo")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(text) > 1024 {
		t.Errorf("expected truncation to 1KB, got %d bytes", len(text))
	}
}

func TestFlattenHTMLInvalidInput(t *testing.T) {
	// html.Parse is lenient; even fragments should produce usable text.
	text := FlattenHTML("just plain text, no tags", "https://pharmeasy.in")
	if !strings.Contains(text, "just plain text") {
		t.Errorf("plain text lost: %q", text)
	}
}
