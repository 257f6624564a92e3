package extractor

import (
	"fmt"
	"strings"
)

const systemPrompt = `You extract concert information from the text of a concert web page.
Respond with a single JSON object and nothing else, shaped as
{"events": [{"date": "...", "location": "..."}], "contact": {"name": "...", "email": "..."}}.

Rules:
- date is written as "DD monthname YYYY", for example "24 juni 2025".
- location is written as "Venue, City" with exactly one comma separating venue and city.
- City names use these spellings: %s.
- List every (date, location) combination once.
- Only include "contact" when the page names a press or media contact with an e-mail address. Omit the field otherwise.
- When the page holds no concert dates, return {"events": []}.`

// BuildMessages returns the chat messages for one extraction request.
func BuildMessages(text string, canonicalCities []string) []Message {
	cities := "the spelling used on the page"
	if len(canonicalCities) > 0 {
		cities = strings.Join(canonicalCities, ", ")
	}

	return []Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, cities)},
		{Role: "user", Content: text},
	}
}

// extractionSchema is the JSON schema sent with every request.
func extractionSchema() *ResponseFormat {
	stringField := map[string]any{"type": "string"}

	return &ResponseFormat{
		Type: "json_schema",
		JSONSchema: &JSONSchema{
			Name:   "concert_extraction",
			Strict: false,
			Schema: map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"events"},
				"properties": map[string]any{
					"events": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"date", "location"},
							"properties": map[string]any{
								"date":     stringField,
								"location": stringField,
							},
						},
					},
					"contact": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []string{"name", "email"},
						"properties": map[string]any{
							"name":  stringField,
							"email": stringField,
						},
					},
				},
			},
		},
	}
}
