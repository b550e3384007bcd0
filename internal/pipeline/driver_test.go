package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shusrusha/shusrusha/internal/prompts"
	"github.com/shusrusha/shusrusha/internal/prompts/medications"
	"github.com/shusrusha/shusrusha/internal/prompts/ocr"
	"github.com/shusrusha/shusrusha/internal/providers"
)

type stubCatalog struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubCatalog) Search(ctx context.Context, term string) (string, error) {
	s.calls.Add(1)
	return s.text, s.err
}

// scriptedLLM answers by pipeline stage, keyed off the request ID the
// runner assigns to each call.
func scriptedLLM(t *testing.T) *providers.MockClient {
	t.Helper()
	client := providers.NewMockClient()
	client.Handler = func(req *providers.ChatRequest) providers.MockResponse {
		id := req.RequestID
		switch {
		case strings.Contains(id, "-ocr-"):
			return providers.MockResponse{Text: "# Discharge Summary\n\nTab Amlod 5 1 tab od"}
		case strings.HasSuffix(id, "-diagnoses"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"conditions":["Hypertension"],"lab_tests":[{"test":"Hb","value":"11.2 g/dL","reference_range":"12-16"}]}`)}
		case strings.HasSuffix(id, "-medications"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"medications":[{"name":"Amlod 5","strength":"5mg","form":"tablet","instructions":"1 tab od","duration":null}]}`)}
		case strings.Contains(id, "-products-"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"products":[{"name":"Amlod 5mg Strip Of 15 Tablets","url":"https://pharmeasy.in/online-medicine-order/amlod-5mg-1"}]}`)}
		case strings.Contains(id, "-match-"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"match_type":"exact","product_name":"Amlod 5mg Strip Of 15 Tablets","product_url":"https://pharmeasy.in/online-medicine-order/amlod-5mg-1","confidence":90,"score_breakdown":{"exact_name":40,"strength":30,"name_similarity":20,"category":0,"total":90},"reasoning":"Same drug and strength."}`)}
		default:
			t.Errorf("unexpected request id %q", id)
			return providers.MockResponse{Err: "unexpected request"}
		}
	}
	return client
}

func newTestRunner(llm providers.LLMClient, catalog CatalogSearcher) *Runner {
	return NewRunner(llm, catalog, nil, Config{MaxWorkers: 2}, nil)
}

func TestRunEndToEnd(t *testing.T) {
	llm := scriptedLLM(t)
	catalog := &stubCatalog{text: "[Amlod 5mg Strip Of 15 Tablets](https://pharmeasy.in/online-medicine-order/amlod-5mg-1)"}
	runner := newTestRunner(llm, catalog)

	st := NewState([]Page{{Name: "page1.jpg", Data: []byte("fake image")}})
	if err := runner.Run(context.Background(), st); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(st.Markdown, "Tab Amlod 5 1 tab od") {
		t.Errorf("markdown missing transcription: %q", st.Markdown)
	}
	if len(st.Diagnoses.Conditions) != 1 || st.Diagnoses.Conditions[0] != "Hypertension" {
		t.Errorf("unexpected diagnoses: %+v", st.Diagnoses)
	}
	if len(st.Medications) != 1 || st.Medications[0].Name != "Amlod 5" {
		t.Fatalf("unexpected medications: %+v", st.Medications)
	}
	if len(st.FixedMedications) != 1 {
		t.Fatalf("expected 1 fixed medication, got %d", len(st.FixedMedications))
	}
	fm := st.FixedMedications[0]
	if fm.MatchType != MatchExact || fm.ProductURL == nil {
		t.Errorf("unexpected match: %+v", fm)
	}
	if count := strings.Count(st.HTMLSummary, `class="med"`); count != 1 {
		t.Errorf("expected 1 medication pill in report, got %d", count)
	}
	if !strings.Contains(st.HTMLSummary, "pill-exact") {
		t.Error("report missing exact-match pill")
	}
}

func TestRunNoImages(t *testing.T) {
	llm := providers.NewMockClient()
	runner := newTestRunner(llm, &stubCatalog{})

	st := NewState(nil)
	err := runner.Run(context.Background(), st)
	if !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	if llm.RequestCount() != 0 {
		t.Errorf("expected no LLM calls, got %d", llm.RequestCount())
	}
}

func TestRunDiagnosisFailureDegradesToEmpty(t *testing.T) {
	llm := providers.NewMockClient()
	llm.Handler = func(req *providers.ChatRequest) providers.MockResponse {
		id := req.RequestID
		switch {
		case strings.Contains(id, "-ocr-"):
			return providers.MockResponse{Text: "Tab Amlod 5 1 tab od"}
		case strings.HasSuffix(id, "-diagnoses"):
			return providers.MockResponse{Err: "request timed out"}
		case strings.HasSuffix(id, "-medications"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"medications":[{"name":"Amlod 5","strength":null,"form":null,"instructions":"1 tab od","duration":null}]}`)}
		default:
			return providers.MockResponse{JSON: json.RawMessage(
				`{"match_type":"none","product_name":null,"product_url":null,"confidence":0,"score_breakdown":{"exact_name":0,"strength":0,"name_similarity":0,"category":0,"total":0},"reasoning":"nothing comparable"}`)}
		}
	}
	runner := newTestRunner(llm, &stubCatalog{text: ""})

	st := NewState([]Page{{Data: []byte("img")}})
	if err := runner.Run(context.Background(), st); err != nil {
		t.Fatalf("run should absorb extraction failure, got %v", err)
	}
	if st.Diagnoses == nil || len(st.Diagnoses.Conditions) != 0 {
		t.Errorf("expected empty diagnoses default, got %+v", st.Diagnoses)
	}
	if st.HTMLSummary == "" {
		t.Error("run should still produce a report")
	}
	if !strings.Contains(st.HTMLSummary, "No diagnoses were extracted") {
		t.Error("report should render empty diagnoses section")
	}
}

func TestOCRFailedPagePlaceholder(t *testing.T) {
	llm := providers.NewMockClient()
	llm.Responses = []providers.MockResponse{
		{Text: "page one text"},
		{Err: "vision model unavailable"},
		{Text: "page three text"},
	}
	runner := newTestRunner(llm, &stubCatalog{})

	st := NewState([]Page{{Data: []byte("a")}, {Data: []byte("b")}, {Data: []byte("c")}})
	if err := runner.RunOCR(context.Background(), st); err != nil {
		t.Fatalf("RunOCR failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		marker := fmt.Sprintf("<!-- page %d -->", i)
		if !strings.Contains(st.Markdown, marker) {
			t.Errorf("missing page marker %q", marker)
		}
	}
	if !strings.Contains(st.Markdown, "*Page 2 could not be transcribed.*") {
		t.Errorf("missing failure placeholder:\n%s", st.Markdown)
	}
	if !strings.Contains(st.Markdown, "page one text") || !strings.Contains(st.Markdown, "page three text") {
		t.Error("surviving pages lost")
	}
}

func TestOCRStripsCodeFences(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = "```markdown\n# Heading\ntext\n```"
	runner := newTestRunner(llm, &stubCatalog{})

	st := NewState([]Page{{Data: []byte("a")}})
	if err := runner.RunOCR(context.Background(), st); err != nil {
		t.Fatalf("RunOCR failed: %v", err)
	}
	if strings.Contains(st.Markdown, "```") {
		t.Errorf("code fences not stripped: %q", st.Markdown)
	}
	if !strings.Contains(st.Markdown, "# Heading") {
		t.Errorf("content lost during fence cleanup: %q", st.Markdown)
	}
}

func TestUserPromptOverrideReachesRequest(t *testing.T) {
	resolver := prompts.NewResolver(nil)
	ocr.RegisterPrompts(resolver)
	if err := resolver.SetOverride(ocr.UserPromptKey, "Custom transcription of page {{.PageNum}}/{{.PageCount}}"); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	llm := providers.NewMockClient()
	llm.ResponseText = "# Page text"
	runner := NewRunner(llm, &stubCatalog{}, resolver, Config{MaxWorkers: 2}, nil)

	st := NewState([]Page{{Data: []byte("a")}, {Data: []byte("b")}})
	if err := runner.RunOCR(context.Background(), st); err != nil {
		t.Fatalf("RunOCR failed: %v", err)
	}

	reqs := llm.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if got := reqs[0].Messages[1].Content; got != "Custom transcription of page 1/2" {
		t.Errorf("override not rendered into user message: %q", got)
	}
	if got := reqs[1].Messages[1].Content; got != "Custom transcription of page 2/2" {
		t.Errorf("override not rendered for second page: %q", got)
	}
}

func TestUserPromptWithoutOverrideUsesEmbedded(t *testing.T) {
	resolver := prompts.NewResolver(nil)
	ocr.RegisterPrompts(resolver)

	llm := providers.NewMockClient()
	llm.ResponseText = "# Page text"
	runner := NewRunner(llm, &stubCatalog{}, resolver, Config{MaxWorkers: 2}, nil)

	st := NewState([]Page{{Data: []byte("a")}})
	if err := runner.RunOCR(context.Background(), st); err != nil {
		t.Fatalf("RunOCR failed: %v", err)
	}

	reqs := llm.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if got, want := reqs[0].Messages[1].Content, ocr.UserPrompt(1, 1); got != want {
		t.Errorf("expected embedded user prompt %q, got %q", want, got)
	}
}

func TestExtractMalformedJSONDefaults(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = "I could not find any structured data, sorry!"
	runner := newTestRunner(llm, &stubCatalog{})

	st := NewState([]Page{{Data: []byte("a")}})
	st.Markdown = "some markdown"

	runner.ExtractDiagnoses(context.Background(), st)
	if st.Diagnoses == nil || len(st.Diagnoses.Conditions) != 0 || len(st.Diagnoses.LabTests) != 0 {
		t.Errorf("expected empty diagnoses, got %+v", st.Diagnoses)
	}

	runner.ExtractMedications(context.Background(), st)
	if st.Medications == nil || len(st.Medications) != 0 {
		t.Errorf("expected empty medications, got %+v", st.Medications)
	}
}

func TestReconcileLengthAndOrder(t *testing.T) {
	llm := providers.NewMockClient()
	llm.Handler = func(req *providers.ChatRequest) providers.MockResponse {
		id := req.RequestID
		switch {
		case strings.Contains(id, "-products-"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"products":[{"name":"Candidate","url":"https://pharmeasy.in/p/1"}]}`)}
		case strings.Contains(id, "-match-"):
			return providers.MockResponse{JSON: json.RawMessage(
				`{"match_type":"alternative","product_name":"Candidate","product_url":"https://pharmeasy.in/p/1","confidence":60,"score_breakdown":{"exact_name":0,"strength":30,"name_similarity":20,"category":10,"total":60},"reasoning":"same drug, different strength"}`)}
		default:
			return providers.MockResponse{Err: "unexpected call"}
		}
	}
	runner := newTestRunner(llm, &stubCatalog{text: "[Candidate](https://pharmeasy.in/p/1)"})

	st := NewState([]Page{{Data: []byte("a")}})
	for i := 0; i < 7; i++ {
		st.Medications = append(st.Medications, medications.Medication{
			Name:         fmt.Sprintf("Drug%d", i),
			Instructions: "1 od",
		})
	}

	if err := runner.Reconcile(context.Background(), st); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(st.FixedMedications) != len(st.Medications) {
		t.Fatalf("length mismatch: %d fixed vs %d input", len(st.FixedMedications), len(st.Medications))
	}
	for i, fm := range st.FixedMedications {
		if fm.Medication.Name != st.Medications[i].Name {
			t.Errorf("order broken at %d: %s vs %s", i, fm.Medication.Name, st.Medications[i].Name)
		}
		if fm.MatchType != MatchAlternative {
			t.Errorf("entry %d: expected alternative, got %s", i, fm.MatchType)
		}
	}
}

func TestReconcileCatalogFailureIsNoMatch(t *testing.T) {
	llm := providers.NewMockClient()
	runner := newTestRunner(llm, &stubCatalog{err: errors.New("connection refused")})

	st := NewState([]Page{{Data: []byte("a")}})
	st.Medications = []medications.Medication{
		{Name: "Dolo 650", Instructions: "1 tds"},
		{Name: "Pan 40", Instructions: "1 od"},
	}

	if err := runner.Reconcile(context.Background(), st); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(st.FixedMedications) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(st.FixedMedications))
	}
	for i, fm := range st.FixedMedications {
		if fm.MatchType != MatchNone {
			t.Errorf("entry %d: expected no-match, got %s", i, fm.MatchType)
		}
		if fm.ProductName != nil || fm.ProductURL != nil {
			t.Errorf("entry %d: expected null product fields, got %+v", i, fm)
		}
	}
	if llm.RequestCount() != 0 {
		t.Errorf("no LLM calls expected when catalog fails, got %d", llm.RequestCount())
	}
}

func TestReconcileZeroCandidatesIsNoMatch(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseJSON = json.RawMessage(`{"products":[]}`)
	runner := newTestRunner(llm, &stubCatalog{text: "No results found for your search"})

	st := NewState([]Page{{Data: []byte("a")}})
	st.Medications = []medications.Medication{{Name: "Obscurol", Instructions: "1 od"}}

	if err := runner.Reconcile(context.Background(), st); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	fm := st.FixedMedications[0]
	if fm.MatchType != MatchNone || fm.ProductName != nil || fm.ProductURL != nil {
		t.Errorf("expected no-match with null fields, got %+v", fm)
	}
	// Only the candidate-parsing call should have happened.
	if llm.RequestCount() != 1 {
		t.Errorf("expected 1 LLM call, got %d", llm.RequestCount())
	}
}

func TestReconcileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := providers.NewMockClient()
	runner := newTestRunner(llm, &stubCatalog{text: "ignored"})

	st := NewState([]Page{{Data: []byte("a")}})
	st.Medications = []medications.Medication{
		{Name: "Dolo 650", Instructions: "1 tds"},
		{Name: "Pan 40", Instructions: "1 od"},
	}

	err := runner.Reconcile(ctx, st)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(st.FixedMedications) != 2 {
		t.Fatalf("cancelled run must still fill all slots, got %d", len(st.FixedMedications))
	}
	for i, fm := range st.FixedMedications {
		if fm.MatchType != MatchNone {
			t.Errorf("entry %d: expected no-match after cancel, got %s", i, fm.MatchType)
		}
	}
}
