package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/avvvet/voicenav/internal/prompts"
)

// LangChainProvider adapts any langchaingo model. The schema travels in
// the system prompt; JSON mode is requested where the backend has one.
type LangChainProvider struct {
	llm      llms.Model
	model    string
	jsonMode bool
	timeout  time.Duration
}

func NewLangChainProvider(model llms.Model, name string, jsonMode bool, timeout time.Duration) *LangChainProvider {
	return &LangChainProvider{llm: model, model: name, jsonMode: jsonMode, timeout: timeout}
}

// NewOpenAIProvider builds an OpenAI-compatible backend.
func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration) (*LangChainProvider, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangChainProvider(client, model, true, timeout), nil
}

func NewAnthropicProvider(apiKey, model, baseURL string, timeout time.Duration) (*LangChainProvider, error) {
	opts := []anthropic.Option{anthropic.WithToken(apiKey), anthropic.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return NewLangChainProvider(client, model, false, timeout), nil
}

func (p *LangChainProvider) Model() string { return p.model }

func (p *LangChainProvider) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	system := request.System
	if request.Schema != nil && system == "" {
		system = "Respond only with JSON matching this schema:\n" + prompts.SchemaJSON()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt),
	}
	opts := []llms.CallOption{llms.WithTemperature(request.Temperature)}
	if request.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(request.MaxTokens))
	}
	if p.jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := p.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: generate content: %w", p.model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, fmt.Errorf("%s: returned empty content", p.model)
	}

	out := &LLMResponse{Content: resp.Choices[0].Content}
	info := resp.Choices[0].GenerationInfo
	if in, ok := info["PromptTokens"].(int); ok {
		out.Usage = &Usage{InputTokens: in}
		if o, ok := info["CompletionTokens"].(int); ok {
			out.Usage.OutputTokens = o
		}
	}
	return out, nil
}
