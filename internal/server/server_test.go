package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shusrusha/shusrusha/internal/config"
	"github.com/shusrusha/shusrusha/internal/pipeline"
	"github.com/shusrusha/shusrusha/internal/providers"
)

type stubCatalog struct{}

func (stubCatalog) Search(ctx context.Context, term string) (string, error) {
	return "", nil
}

func testServer(t *testing.T, serverCfg config.ServerCfg) *Server {
	t.Helper()
	llm := providers.NewMockClient()
	llm.Handler = func(req *providers.ChatRequest) providers.MockResponse {
		id := req.RequestID
		switch {
		case strings.Contains(id, "-ocr-"):
			return providers.MockResponse{Text: "Tab Amlod 5 1 tab od"}
		case strings.HasSuffix(id, "-diagnoses"):
			return providers.MockResponse{JSON: json.RawMessage(`{"conditions":["Hypertension"],"lab_tests":[]}`)}
		case strings.HasSuffix(id, "-medications"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"medications":[{"name":"Amlod 5","strength":null,"form":null,"instructions":"1 tab od","duration":null}]}`)}
		default:
			return providers.MockResponse{Err: "unexpected call"}
		}
	}
	runner := pipeline.NewRunner(llm, stubCatalog{}, nil, pipeline.Config{MaxWorkers: 2}, nil)

	s, err := New(Config{Server: serverCfg, Runner: runner})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealthNoAuth(t *testing.T) {
	s := testServer(t, config.ServerCfg{AuthToken: "secret"})
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("unexpected status: %s", resp.Status)
	}
}

func TestStatusRequiresAuth(t *testing.T) {
	s := testServer(t, config.ServerCfg{AuthToken: "secret"})

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestProcessEndToEnd(t *testing.T) {
	s := testServer(t, config.ServerCfg{AuthToken: "secret"})

	body, contentType := multipartBody(t, map[string][]byte{"page1.jpg": []byte("img")})
	req := httptest.NewRequest("POST", "/process", body)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ProcessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.RunID == "" {
		t.Error("missing run ID")
	}
	if !strings.Contains(resp.Markdown, "Tab Amlod 5") {
		t.Errorf("markdown missing transcription: %q", resp.Markdown)
	}
	if !strings.Contains(resp.HTMLSummary, "pill") {
		t.Error("HTML summary missing medication pill")
	}
}

func TestProcessNoImages(t *testing.T) {
	s := testServer(t, config.ServerCfg{})

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest("POST", "/process", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProcessRateLimited(t *testing.T) {
	s := testServer(t, config.ServerCfg{RateLimit: 1})

	first := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	second := httptest.NewRequest("GET", "/status", nil)
	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
