package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// Provider is a remote model able to answer with schema-constrained JSON.
// Implementations hold no mutable state after construction.
type Provider interface {
	// Model is the identifier reported in IntentResult.model.
	Model() string
	Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the structured request to a model.
type LLMRequest struct {
	System      string
	Prompt      string
	Schema      map[string]any
	MaxTokens   int
	Temperature float64
}

// LLMResponse represents the raw response from a model.
type LLMResponse struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StatusError is returned when a provider answers with a non-2xx status.
// Auth is set when the provider rejected the credentials, whatever the
// status code.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	Auth       bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Auth || se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
}

// langchaingo clients only report statuses inside error strings.
var statusInMessage = regexp.MustCompile(`(?i)status(?: code)?:?\s*(\d{3})`)

// StatusCode extracts the HTTP status behind err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	if err == nil {
		return 0, false
	}
	m := statusInMessage.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return code, true
}
