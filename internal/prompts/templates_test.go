package prompts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/voicenav/internal/models"
)

const validReply = `{"success":true,"data":{"intent":"navigation","entities":{"website":"youtube","url":"https://www.youtube.com","action":"open_website"},"message":"Opening YouTube","confidence":0.9},"message":"ok"}`

func TestParseLLMResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain json", content: validReply},
		{name: "code fence", content: "```json\n" + validReply + "\n```"},
		{name: "prose around", content: "Sure! Here is the result: " + validReply + " Hope that helps {not json}."},
		{name: "brace inside string", content: `noise {"success":true,"data":{"intent":"qna","entities":{},"message":"use {braces}","confidence":0.8}} trailing`},
		{name: "first braces not json", content: `{oops} then ` + validReply},
		{name: "no json", content: "I cannot help with that", wantErr: true},
		{name: "truncated", content: `{"success":true,"data":{"intent":"search"`, wantErr: true},
		{name: "schema violation", content: `{"success":"yes","data":{}}`, wantErr: true},
		{name: "confidence out of range", content: `{"success":true,"data":{"intent":"qna","entities":{},"message":"x","confidence":7}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := ParseLLMResponse(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.True(t, reply.Success)
			assert.NotEmpty(t, reply.Data.Intent)
		})
	}
}

func TestParseLLMResponseFields(t *testing.T) {
	reply, err := ParseLLMResponse(validReply)
	require.NoError(t, err)

	assert.Equal(t, "navigation", reply.Data.Intent)
	assert.Equal(t, "https://www.youtube.com", reply.Data.Entities.String("url"))
	assert.Equal(t, 0.9, reply.Data.Confidence)
	assert.Equal(t, "Opening YouTube", reply.Data.Message)
}

func TestParseAcceptsUnlistedIntentLabels(t *testing.T) {
	reply, err := ParseLLMResponse(`{"success":true,"data":{"intent":"open_site","entities":{"website":"github"},"message":"Opening","confidence":0.9}}`)
	require.NoError(t, err)
	assert.Equal(t, "open_site", reply.Data.Intent)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":{"b":"}"}}`, extractJSON(`x {"a":{"b":"}"}} y {"c":1}`))
	assert.Equal(t, `{"c":1}`, extractJSON(`{broken {"c":1}`))
	assert.Equal(t, "", extractJSON(`no object here`))
	assert.Equal(t, `{"q":"say \"hi\" {"}`, extractJSON(`{"q":"say \"hi\" {"}`))
}

func TestResponseSchemaDeclaresContract(t *testing.T) {
	schema := ResponseSchema()
	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var decoded struct {
		Required   []string `json:"required"`
		Properties struct {
			Data struct {
				Required   []string `json:"required"`
				Properties struct {
					Intent struct {
						Enum []string `json:"enum"`
					} `json:"intent"`
					Entities struct {
						Required []string `json:"required"`
					} `json:"entities"`
				} `json:"properties"`
			} `json:"data"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, []string{"success", "data"}, decoded.Required)
	assert.ElementsMatch(t, []string{"intent", "entities", "message", "confidence"}, decoded.Properties.Data.Required)
	assert.Len(t, decoded.Properties.Data.Properties.Intent.Enum, len(models.Intents))
	assert.Contains(t, decoded.Properties.Data.Properties.Intent.Enum, "navigation")
	assert.NotContains(t, decoded.Properties.Data.Properties.Intent.Enum, "open_site")
	assert.ElementsMatch(t, EntityStringKeys, decoded.Properties.Data.Properties.Entities.Required)
}

func TestGeminiSchema(t *testing.T) {
	g := GeminiSchema(ResponseSchema())
	assert.Equal(t, "OBJECT", g["type"])

	data := g["properties"].(map[string]any)["data"].(map[string]any)
	entities := data["properties"].(map[string]any)["entities"].(map[string]any)
	formFields := entities["properties"].(map[string]any)["form_fields"].(map[string]any)

	assert.Equal(t, "OBJECT", formFields["type"])
	assert.NotContains(t, formFields, "additionalProperties")
	assert.Equal(t, "STRING", formFields["properties"].(map[string]any)["email"].(map[string]any)["type"])
}

func TestBuildSystemInstruction(t *testing.T) {
	prompt := BuildSystemInstruction()
	for _, intent := range models.Intents {
		assert.Contains(t, prompt, "- "+string(intent)+":")
	}
	assert.Contains(t, prompt, `"form_fields"`)
	assert.Contains(t, prompt, "first_name")
	assert.Equal(t, "Command: open youtube", BuildUserPrompt("open youtube"))
}
