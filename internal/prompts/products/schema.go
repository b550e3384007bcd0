package products

import "encoding/json"

// ExtractionSchema is the JSON schema for catalog page parsing output.
var ExtractionSchema = map[string]any{
	"name":   "catalog_products",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"products": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{
							"type":        "string",
							"description": "Full product listing name",
						},
						"url": map[string]any{
							"type":        "string",
							"description": "Absolute product page URL",
						},
					},
					"required":             []string{"name", "url"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"products"},
		"additionalProperties": false,
	},
}

// SchemaJSON returns the extraction schema as raw JSON for a ChatRequest.
func SchemaJSON() json.RawMessage {
	b, _ := json.Marshal(ExtractionSchema)
	return b
}

// Product is one candidate product parsed from the catalog page.
type Product struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Result represents the parsed result from catalog page parsing.
type Result struct {
	Products []Product `json:"products"`
}
