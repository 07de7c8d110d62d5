package models

import "strings"

// Intent is the closed-set classification of a command.
type Intent string

const (
	IntentSearch        Intent = "search"
	IntentQnA           Intent = "qna"
	IntentSummarize     Intent = "summarize"
	IntentFormFill      Intent = "form_fill"
	IntentBookTicket    Intent = "book_ticket"
	IntentWebsiteSearch Intent = "website_search"
	IntentNavigation    Intent = "navigation"
	IntentOther         Intent = "other"
	IntentUnknown       Intent = "unknown"
)

// Intents lists the closed set in prompt order.
var Intents = []Intent{
	IntentSearch,
	IntentQnA,
	IntentSummarize,
	IntentFormFill,
	IntentBookTicket,
	IntentWebsiteSearch,
	IntentNavigation,
	IntentOther,
	IntentUnknown,
}

// Valid reports whether i belongs to the closed set.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// ParseIntent maps a raw model label onto the closed set. The legacy
// "open_site" label is accepted as navigation; anything else unknown
// becomes other.
func ParseIntent(raw string) Intent {
	label := Intent(strings.ToLower(strings.TrimSpace(raw)))
	switch {
	case label.Valid():
		return label
	case label == "open_site" || label == "open_website":
		return IntentNavigation
	case label == "":
		return IntentUnknown
	default:
		return IntentOther
	}
}

// FallbackModel marks results produced by the rule engine.
const FallbackModel = "fallback-rule-based"

// IntentResult is the output of classification, model-backed or not.
type IntentResult struct {
	Intent     Intent   `json:"intent"`
	Entities   Entities `json:"entities"`
	Message    string   `json:"message"`
	Confidence float64  `json:"confidence"`
	Model      string   `json:"model"`
	// Pattern names the fallback rule that fired, if any.
	Pattern string `json:"pattern,omitempty"`
}

// IsFallback reports whether the rule engine produced r.
func (r IntentResult) IsFallback() bool {
	return r.Model == FallbackModel
}

// IntentRequest is what the HTTP and NATS intakes accept.
type IntentRequest struct {
	Text      string `json:"text" binding:"required"`
	RequestID string `json:"request_id,omitempty"`
}

// IntentResponse is the final shape surfaced to callers.
type IntentResponse struct {
	Intent     Intent           `json:"intent"`
	Entities   Entities         `json:"entities"`
	Message    string           `json:"message"`
	Confidence float64          `json:"confidence"`
	Metadata   ResponseMetadata `json:"metadata"`
}

type ResponseMetadata struct {
	ProcessingTime int64  `json:"processingTime"` // milliseconds
	Timestamp      string `json:"timestamp"`
	Model          string `json:"model"`
	Pattern        string `json:"pattern,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
	Cached         bool   `json:"cached,omitempty"`
}

// Result rebuilds the IntentResult carried by the response.
func (r *IntentResponse) Result() IntentResult {
	return IntentResult{
		Intent:     r.Intent,
		Entities:   r.Entities,
		Message:    r.Message,
		Confidence: r.Confidence,
		Model:      r.Metadata.Model,
		Pattern:    r.Metadata.Pattern,
	}
}

// CommandOutcome is what a full pipeline run returns.
type CommandOutcome struct {
	Response  *IntentResponse  `json:"response"`
	Action    ActionRequest    `json:"action"`
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// ErrorBody is the JSON error envelope used by the intakes.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
