package match

import "encoding/json"

// ExtractionSchema is the JSON schema for product matching output.
var ExtractionSchema = map[string]any{
	"name":   "product_match",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"match_type": map[string]any{
				"type":        "string",
				"enum":        []string{"exact", "alternative", "none"},
				"description": "Match classification",
			},
			"product_name": map[string]any{
				"type":        []string{"string", "null"},
				"description": "Matched product listing name, null when match_type is none",
			},
			"product_url": map[string]any{
				"type":        []string{"string", "null"},
				"description": "Matched product page URL, null when match_type is none",
			},
			"confidence": map[string]any{
				"type":        "integer",
				"description": "Total hierarchical score, 0-100",
			},
			"score_breakdown": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"exact_name":      map[string]any{"type": "integer", "description": "0-40"},
					"strength":        map[string]any{"type": "integer", "description": "0-30"},
					"name_similarity": map[string]any{"type": "integer", "description": "0-20"},
					"category":        map[string]any{"type": "integer", "description": "0-10"},
					"total":           map[string]any{"type": "integer", "description": "0-100"},
				},
				"required":             []string{"exact_name", "strength", "name_similarity", "category", "total"},
				"additionalProperties": false,
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Short justification for the decision",
			},
		},
		"required":             []string{"match_type", "product_name", "product_url", "confidence", "score_breakdown", "reasoning"},
		"additionalProperties": false,
	},
}

// SchemaJSON returns the match schema as raw JSON for a ChatRequest.
func SchemaJSON() json.RawMessage {
	b, _ := json.Marshal(ExtractionSchema)
	return b
}

// ScoreBreakdown reports the per-tier points behind a match decision.
type ScoreBreakdown struct {
	ExactName      int `json:"exact_name"`
	Strength       int `json:"strength"`
	NameSimilarity int `json:"name_similarity"`
	Category       int `json:"category"`
	Total          int `json:"total"`
}

// Result represents the parsed result from product matching.
type Result struct {
	MatchType      string         `json:"match_type"`
	ProductName    *string        `json:"product_name"`
	ProductURL     *string        `json:"product_url"`
	Confidence     int            `json:"confidence"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
	Reasoning      string         `json:"reasoning"`
}
