package medications

import "encoding/json"

// ExtractionSchema is the JSON schema for medication extraction output.
var ExtractionSchema = map[string]any{
	"name":   "medication_extraction",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"medications": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{
							"type":        "string",
							"description": "Drug name as written, brand or generic",
						},
						"strength": map[string]any{
							"type":        []string{"string", "null"},
							"description": "Dose strength (e.g. '150mg'), null if not stated",
						},
						"form": map[string]any{
							"type":        []string{"string", "null"},
							"description": "Dosage form (tablet, capsule, ...), null if not stated",
						},
						"instructions": map[string]any{
							"type":        "string",
							"description": "Dosing instruction as written",
						},
						"duration": map[string]any{
							"type":        []string{"string", "null"},
							"description": "Stated duration, null if not stated",
						},
					},
					"required":             []string{"name", "strength", "form", "instructions", "duration"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"medications"},
		"additionalProperties": false,
	},
}

// SchemaJSON returns the extraction schema as raw JSON for a ChatRequest.
func SchemaJSON() json.RawMessage {
	b, _ := json.Marshal(ExtractionSchema)
	return b
}

// Medication is one prescribed medication in document order.
type Medication struct {
	Name         string  `json:"name"`
	Strength     *string `json:"strength"`
	Form         *string `json:"form"`
	Instructions string  `json:"instructions"`
	Duration     *string `json:"duration"`
}

// Result represents the parsed result from medication extraction.
type Result struct {
	Medications []Medication `json:"medications"`
}
