package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avvvet/voicenav/internal/prompts"
)

// DefaultGeminiBaseURL is the public generateContent endpoint root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the Gemini REST API with a response schema so the
// reply is constrained server-side.
type GeminiProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewGeminiProvider(apiKey, model, baseURL string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiProvider{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (g *GeminiProvider) Model() string { return g.model }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Reason string `json:"reason"`
	} `json:"details"`
}

// authFailure reports whether the error describes a bad or unauthorised
// key. Gemini answers an invalid key with 400 INVALID_ARGUMENT.
func (e *geminiError) authFailure() bool {
	switch e.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	for _, d := range e.Details {
		if d.Reason == "API_KEY_INVALID" {
			return true
		}
	}
	return false
}

func (g *GeminiProvider) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	temperature := request.Temperature
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: request.Prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      &temperature,
			MaxOutputTokens:  request.MaxTokens,
			ResponseMimeType: "application/json",
		},
	}
	if request.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: request.System}}}
	}
	if request.Schema != nil {
		payload.GenerationConfig.ResponseSchema = prompts.GeminiSchema(request.Schema)
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: reading response body: %w", err)
	}

	var apiResp geminiResponse
	decodeErr := json.Unmarshal(bodyBytes, &apiResp)

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{Provider: "gemini", StatusCode: resp.StatusCode, Body: truncate(string(bodyBytes), 300)}
		if decodeErr == nil && apiResp.Error != nil {
			se.Auth = apiResp.Error.authFailure()
		}
		return nil, se
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("gemini: parsing response JSON: %w", decodeErr)
	}
	if apiResp.Error != nil {
		return nil, &StatusError{
			Provider:   "gemini",
			StatusCode: apiResp.Error.Code,
			Body:       apiResp.Error.Message,
			Auth:       apiResp.Error.authFailure(),
		}
	}
	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: returned no candidates")
	}

	var text strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("gemini: returned empty text content")
	}

	out := &LLMResponse{Content: text.String()}
	if u := apiResp.UsageMetadata; u != nil {
		out.Usage = &Usage{InputTokens: u.PromptTokenCount, OutputTokens: u.CandidatesTokenCount}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
