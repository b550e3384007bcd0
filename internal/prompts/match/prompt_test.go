package match

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shusrusha/shusrusha/internal/prompts/products"
)

func TestUserPromptRendersCandidates(t *testing.T) {
	out := UserPrompt(UserPromptData{
		Name:         "Cifran CT",
		Strength:     "500mg",
		Form:         "tablet",
		Instructions: "1 bd after food",
		Diagnoses:    "Acute gastroenteritis",
		Candidates: []products.Product{
			{Name: "Cifran CT Strip Of 10 Tablets", URL: "https://pharmeasy.in/p/1"},
			{Name: "Ciplox 500mg Tablet", URL: "https://pharmeasy.in/p/2"},
		},
	})

	for _, want := range []string{
		"Cifran CT",
		"500mg",
		"1 bd after food",
		"Acute gastroenteritis",
		"Cifran CT Strip Of 10 Tablets",
		"https://pharmeasy.in/p/2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}

func TestUserPromptOmitsEmptyFields(t *testing.T) {
	out := UserPrompt(UserPromptData{
		Name:         "Dolo",
		Instructions: "1 tds",
		Candidates:   []products.Product{{Name: "Dolo 650", URL: "https://pharmeasy.in/p/1"}},
	})
	if strings.Contains(out, "strength:") {
		t.Errorf("empty strength should be omitted:\n%s", out)
	}
	if strings.Contains(out, "Patient diagnoses") {
		t.Errorf("empty diagnoses should be omitted:\n%s", out)
	}
}

func TestSchemaJSONIsValid(t *testing.T) {
	var wrapper struct {
		Name   string          `json:"name"`
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(SchemaJSON(), &wrapper); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if wrapper.Name != "product_match" {
		t.Errorf("unexpected schema name: %s", wrapper.Name)
	}
	if !strings.Contains(string(wrapper.Schema), "match_type") {
		t.Error("schema missing match_type property")
	}
}

func TestResultRoundTrip(t *testing.T) {
	payload := `{"match_type":"none","product_name":null,"product_url":null,"confidence":0,"score_breakdown":{"exact_name":0,"strength":0,"name_similarity":0,"category":0,"total":0},"reasoning":"nothing comparable"}`
	var res Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if res.MatchType != "none" || res.ProductName != nil || res.ProductURL != nil {
		t.Errorf("unexpected result: %+v", res)
	}
}
