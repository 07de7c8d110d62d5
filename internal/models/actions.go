package models

import (
	"strings"
	"unicode/utf8"
)

// Command is one trimmed, length-checked line of recognized speech.
type Command struct {
	text string
}

// NewCommand trims text and enforces 1 <= len <= max (in runes).
func NewCommand(text string, max int) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{}, NewValidationError("text is required")
	}
	if n := utf8.RuneCountInString(trimmed); max > 0 && n > max {
		return Command{}, NewValidationError("text exceeds %d characters (got %d)", max, n)
	}
	return Command{text: trimmed}, nil
}

func (c Command) Text() string { return c.text }

// ActionType is a concrete automation operation.
type ActionType string

const (
	ActionSearch        ActionType = "SEARCH"
	ActionNavigate      ActionType = "NAVIGATE"
	ActionWebsiteSearch ActionType = "WEBSITE_SEARCH"
	ActionFormFill      ActionType = "FORM_FILL"
	ActionBookTicket    ActionType = "BOOK_TICKET"
	ActionSummarize     ActionType = "SUMMARIZE"
	ActionNone          ActionType = "NONE"
)

// ActionPayload carries the IntentResult-derived fields an action needs.
// String fields are always serialized, empty when unused.
type ActionPayload struct {
	Query      string            `json:"query"`
	URL        string            `json:"url"`
	Website    string            `json:"website"`
	FormFields map[string]string `json:"form_fields"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Date       string            `json:"date"`
	Intent     Intent            `json:"intent"`
	Message    string            `json:"message"`
}

type ActionRequest struct {
	Action  ActionType    `json:"action"`
	Payload ActionPayload `json:"payload"`
}

// ExecutionResult is the terminal value of a pipeline run.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
	Filled  int    `json:"filled,omitempty"`
}

// Failed builds an unsuccessful result from err.
func Failed(err error) ExecutionResult {
	return ExecutionResult{Success: false, Error: err.Error()}
}

// MessageType tags messages crossing into a page context.
type MessageType string

const (
	MessageSearch        MessageType = "SEARCH"
	MessageNavigation    MessageType = "NAVIGATION"
	MessageWebsiteSearch MessageType = "WEBSITE_SEARCH"
	MessageFormFill      MessageType = "FORM_FILL"
	MessageBookTicket    MessageType = "BOOK_TICKET"
	MessageSummarize     MessageType = "SUMMARIZE"
)

var actionMessages = map[ActionType]MessageType{
	ActionSearch:        MessageSearch,
	ActionNavigate:      MessageNavigation,
	ActionWebsiteSearch: MessageWebsiteSearch,
	ActionFormFill:      MessageFormFill,
	ActionBookTicket:    MessageBookTicket,
	ActionSummarize:     MessageSummarize,
}

// MessageFor returns the wire tag for a; NONE has none.
func MessageFor(a ActionType) (MessageType, bool) {
	t, ok := actionMessages[a]
	return t, ok
}

// Action maps a wire tag back to its action.
func (t MessageType) Action() ActionType {
	for a, m := range actionMessages {
		if m == t {
			return a
		}
	}
	return ActionNone
}

// Message is sent to the page context; exactly one Reply is expected.
type Message struct {
	Type    MessageType   `json:"type"`
	Payload ActionPayload `json:"payload"`
}

type Reply struct {
	Success bool             `json:"success"`
	Data    *ExecutionResult `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ReplyFrom wraps an execution result for the wire.
func ReplyFrom(res ExecutionResult) Reply {
	return Reply{Success: res.Success, Data: &res, Error: res.Error}
}

// Result unwraps a reply into an ExecutionResult.
func (r Reply) Result() ExecutionResult {
	if r.Data != nil {
		out := *r.Data
		if !r.Success {
			out.Success = false
			if out.Error == "" {
				out.Error = r.Error
			}
		}
		return out
	}
	if !r.Success && r.Error == "" {
		return ExecutionResult{Success: false, Error: "page context replied without a result"}
	}
	return ExecutionResult{Success: r.Success, Error: r.Error}
}
