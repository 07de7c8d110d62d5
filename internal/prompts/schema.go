package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/avvvet/voicenav/internal/models"
)

// StandardFormFields are the canonical keys the model must use inside
// form_fields, whatever label the user spoke.
var StandardFormFields = []string{
	"name", "first_name", "last_name", "email", "phone",
	"address", "city", "state", "zip", "country",
	"company", "subject", "message",
}

// EntityStringKeys are declared by the contract and always present in a
// normalized result.
var EntityStringKeys = []string{"query", "action", "website", "url", "from", "to", "date"}

// ResponseSchema is the JSON schema sent to providers. Entity keys and the
// intent enumeration are required.
func ResponseSchema() map[string]any {
	return contract(true)
}

// replySchema is what the local validator enforces: the envelope shape,
// leaving intent labels and missing entity keys to normalization.
func replySchema() map[string]any {
	return contract(false)
}

func contract(strict bool) map[string]any {
	formFields := map[string]any{}
	for _, f := range StandardFormFields {
		formFields[f] = map[string]any{"type": "string"}
	}

	entityProps := map[string]any{
		"form_fields": map[string]any{
			"type":                 "object",
			"properties":           formFields,
			"additionalProperties": map[string]any{"type": "string"},
		},
		"keywords": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	}
	for _, k := range EntityStringKeys {
		entityProps[k] = map[string]any{"type": "string"}
	}
	entitySchema := map[string]any{
		"type":       "object",
		"properties": entityProps,
	}

	intent := map[string]any{"type": "string"}
	if strict {
		labels := make([]any, 0, len(models.Intents))
		for _, i := range models.Intents {
			labels = append(labels, string(i))
		}
		intent["enum"] = labels
		entitySchema["required"] = toAny(EntityStringKeys)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean"},
			"data": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"intent":     intent,
					"entities":   entitySchema,
					"message":    map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"metadata": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"language":  map[string]any{"type": "string"},
							"reasoning": map[string]any{"type": "string"},
						},
					},
				},
				"required": toAny([]string{"intent", "entities", "message", "confidence"}),
			},
			"message": map[string]any{"type": "string"},
		},
		"required": toAny([]string{"success", "data"}),
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// GeminiSchema rewrites a JSON schema into the OpenAPI subset accepted by
// generateContent: upper-case type names, no additionalProperties.
func GeminiSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "additionalProperties", "$schema":
			continue
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
		}
		switch t := v.(type) {
		case map[string]any:
			out[k] = GeminiSchema(t)
		default:
			out[k] = v
		}
	}
	return out
}

var (
	validatorOnce sync.Once
	validator     *gojsonschema.Schema
	validatorErr  error
)

// Validate checks doc against the reply envelope.
func Validate(doc []byte) error {
	validatorOnce.Do(func() {
		validator, validatorErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(replySchema()))
	})
	if validatorErr != nil {
		return fmt.Errorf("compile reply schema: %w", validatorErr)
	}

	result, err := validator.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate reply: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("reply does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// SchemaJSON renders the provider schema for embedding in prompts.
func SchemaJSON() string {
	b, err := json.MarshalIndent(ResponseSchema(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
