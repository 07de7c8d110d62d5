package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/voicenav/internal/models"
)

const systemPromptTemplate = `You are the intent classifier of a voice-controlled browser assistant. Each request is one spoken command, already transcribed to text. Decide what the user wants the browser to do and extract the details needed to do it.

SUPPORTED INTENTS (use exactly one):
%s

ENTITY RULES:
- search: "query" is the search phrase; "keywords" lists important terms; set "website" only when a site is named.
- website_search: "website" is the site to search inside (e.g. "amazon"); "query" is what to search for on it.
- navigation: "website" is the site name as spoken; "url" is the absolute https URL when you can resolve it, otherwise "".
- form_fill: "form_fields" maps standardized field keys to values.
- book_ticket: "from", "to" and "date" describe the journey; use "" for anything not spoken.
- summarize: no entities are required.
- qna: answer the question directly in "message".
- other: greetings, thanks and small talk; reply in "message".
- unknown: the command cannot be understood.
- "action" is a short snake_case verb for what the browser should do (e.g. "search", "open_website", "fill_form").

FORM FIELD STANDARDIZATION:
Map whatever label the user speaks onto these keys: %s.
"full name" and "my name" become "name", "mobile" and "contact number" become "phone", "e-mail" and "mail id" become "email", "pincode" and "postal code" become "zip".

RESPONSE FORMAT:
Respond with a single JSON object and nothing else, matching this schema:
%s

Every string entity listed in the schema must be present; use "" when it does not apply. "confidence" is 0.70 to 0.95. "message" is a short sentence the assistant can speak back.`

const userPromptTemplate = `Command: %s`

// FallbackMessage is spoken when a reply is usable but carries no message.
const FallbackMessage = "I didn't catch that clearly. Could you say it again?"

var intentDescriptions = map[models.Intent]string{
	models.IntentSearch:        "search the web for something",
	models.IntentQnA:           "a question you can answer directly",
	models.IntentSummarize:     "summarize the current page",
	models.IntentFormFill:      "fill fields of a form on the current page",
	models.IntentBookTicket:    "book a travel ticket (train, bus, flight)",
	models.IntentWebsiteSearch: "search inside a specific website",
	models.IntentNavigation:    "open or go to a website",
	models.IntentOther:         "small talk or anything actionable by conversation only",
	models.IntentUnknown:       "not understandable",
}

// BuildSystemInstruction renders the fixed instruction set.
func BuildSystemInstruction() string {
	return fmt.Sprintf(systemPromptTemplate,
		buildIntentSection(),
		strings.Join(StandardFormFields, ", "),
		SchemaJSON())
}

func buildIntentSection() string {
	var builder strings.Builder
	for _, intent := range models.Intents {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", intent, intentDescriptions[intent]))
	}
	return strings.TrimRight(builder.String(), "\n")
}

// BuildUserPrompt wraps the literal command text.
func BuildUserPrompt(text string) string {
	return fmt.Sprintf(userPromptTemplate, text)
}

// Reply is the structured answer of a model.
type Reply struct {
	Success bool      `json:"success"`
	Data    ReplyData `json:"data"`
	Message string    `json:"message"`
}

type ReplyData struct {
	Intent     string          `json:"intent"`
	Entities   models.Entities `json:"entities"`
	Message    string          `json:"message"`
	Confidence float64         `json:"confidence"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// ParseLLMResponse decodes a model reply. The whole payload is tried
// first; failing that, the first balanced {...} object inside it. The
// result must match the reply schema.
func ParseLLMResponse(content string) (*Reply, error) {
	trimmed := strings.TrimSpace(content)
	doc := []byte(trimmed)
	if !json.Valid(doc) {
		jsonContent := extractJSON(trimmed)
		if jsonContent == "" {
			return nil, models.NewParseError(fmt.Errorf("no JSON object found in reply"))
		}
		doc = []byte(jsonContent)
	}

	if err := Validate(doc); err != nil {
		return nil, models.NewParseError(err)
	}

	var reply Reply
	if err := json.Unmarshal(doc, &reply); err != nil {
		return nil, models.NewParseError(fmt.Errorf("failed to parse JSON: %w", err))
	}
	return &reply, nil
}

// extractJSON returns the first balanced {...} substring that is valid
// JSON. Braces inside string literals are ignored.
func extractJSON(content string) string {
	for start := strings.IndexByte(content, '{'); start >= 0; {
		if end := matchBrace(content, start); end > start {
			candidate := content[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
