package diagnoses

import "encoding/json"

// ExtractionSchema is the JSON schema for diagnosis extraction output.
var ExtractionSchema = map[string]any{
	"name":   "diagnosis_extraction",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"conditions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Distinct diagnoses and conditions, free text",
			},
			"lab_tests": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"test": map[string]any{
							"type":        "string",
							"description": "Test name as printed",
						},
						"value": map[string]any{
							"type":        "string",
							"description": "Reported value including unit",
						},
						"reference_range": map[string]any{
							"type":        []string{"string", "null"},
							"description": "Printed reference range, null if absent",
						},
					},
					"required":             []string{"test", "value", "reference_range"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"conditions", "lab_tests"},
		"additionalProperties": false,
	},
}

// SchemaJSON returns the extraction schema as raw JSON for a ChatRequest.
func SchemaJSON() json.RawMessage {
	b, _ := json.Marshal(ExtractionSchema)
	return b
}

// LabTest is one laboratory finding from the summary.
type LabTest struct {
	Test           string  `json:"test"`
	Value          string  `json:"value"`
	ReferenceRange *string `json:"reference_range"`
}

// Result represents the parsed result from diagnosis extraction.
type Result struct {
	Conditions []string  `json:"conditions"`
	LabTests   []LabTest `json:"lab_tests"`
}
