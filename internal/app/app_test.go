package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/voicenav/internal/automation/htmlpage"
	"github.com/avvvet/voicenav/internal/config"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.Provider = config.ProviderNone
	cfg.Browser.Mode = "none"
	cfg.Browser.ReplyTimeout = time.Second
	return cfg
}

func TestNewClassifier_Degraded(t *testing.T) {
	c, err := NewClassifier(baseConfig(), logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, models.FallbackModel, c.Model())
}

func TestNewClassifier_UnknownProvider(t *testing.T) {
	cfg := baseConfig()
	cfg.LLM.Provider = "cohere"
	cfg.LLM.APIKey = "k"
	_, err := NewClassifier(cfg, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestNewCache_Disabled(t *testing.T) {
	m, store, err := NewCache(baseConfig(), logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Nil(t, store)
}

func TestNewIntentHandler_WithoutCache(t *testing.T) {
	cfg := baseConfig()
	cfg.Pipeline.MaxTextLength = 5
	log := logger.NewTestLogger(t)
	c, err := NewClassifier(cfg, log)
	require.NoError(t, err)

	h := NewIntentHandler(cfg, c, nil, log)
	_, err = h.ProcessIntent(context.Background(), &models.IntentRequest{Text: "open youtube"})
	assert.ErrorIs(t, err, models.ErrValidation)

	resp, err := h.ProcessIntent(context.Background(), &models.IntentRequest{Text: "hi"})
	require.NoError(t, err)
	assert.False(t, resp.Metadata.Cached)
}

func TestNewSender_Modes(t *testing.T) {
	s, closeFn, err := NewSender(baseConfig(), nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, s)
	closeFn()

	cfg := baseConfig()
	cfg.Browser.Mode = "relay"
	_, _, err = NewSender(cfg, nil, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestNewMessenger_UsesBrowserSettings(t *testing.T) {
	cfg := baseConfig()
	cfg.Browser.SearchURL = "https://duckduckgo.com/?q="
	page := htmlpage.Blank("https://start.example")

	m := NewMessenger(cfg, htmlpage.NewBrowser(page), logger.NewTestLogger(t))
	res := m.Send(context.Background(), models.ActionRequest{
		Action:  models.ActionSearch,
		Payload: models.ActionPayload{Query: "go modules"},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"https://duckduckgo.com/?q=go+modules"}, page.Navigations())
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(baseConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
