package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/avvvet/voicenav/internal/config"
)

type fakeModel struct {
	content  string
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        f.content,
		GenerationInfo: map[string]any{"PromptTokens": 40, "CompletionTokens": 12},
	}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.content, f.err
}

func TestLangChainProvider_Complete(t *testing.T) {
	fake := &fakeModel{content: `{"success":true}`}
	p := NewLangChainProvider(fake, "gpt-test", true, time.Second)

	resp, err := p.Complete(context.Background(), &LLMRequest{
		System:      "classify",
		Prompt:      "Command: hello",
		MaxTokens:   128,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"success":true}`, resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 12, resp.Usage.OutputTokens)
	assert.Equal(t, "gpt-test", p.Model())

	require.Len(t, fake.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "Command: hello"}, fake.messages[1].Parts[0])
	assert.True(t, fake.options.JSONMode)
	assert.Equal(t, 128, fake.options.MaxTokens)
	assert.Equal(t, 0.2, fake.options.Temperature)
}

func TestLangChainProvider_Errors(t *testing.T) {
	fake := &fakeModel{err: errors.New("API returned unexpected status code: 429: slow down")}
	_, err := NewLangChainProvider(fake, "claude-test", false, 0).Complete(context.Background(), &LLMRequest{Prompt: "x"})
	require.Error(t, err)
	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, 429, code)
	assert.False(t, fake.options.JSONMode)

	empty := &fakeModel{content: ""}
	_, err = NewLangChainProvider(empty, "m", false, 0).Complete(context.Background(), &LLMRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{Provider: config.ProviderGemini})
	require.NoError(t, err)
	assert.Nil(t, p, "missing key means no provider")

	p, err = NewProvider(config.LLMConfig{Provider: config.ProviderNone, APIKey: "k"})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(config.LLMConfig{Provider: config.ProviderGemini, APIKey: "k", Model: "gemini-x"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "gemini-x", p.Model())

	p, err = NewProvider(config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "gpt-x"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", p.Model())

	_, err = NewProvider(config.LLMConfig{Provider: "cohere", APIKey: "k"})
	assert.Error(t, err)
}
