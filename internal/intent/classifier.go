// Package intent classifies commands with a remote model, deferring to the
// rule engine whenever the model cannot give a usable answer.
package intent

import (
	"context"
	"net/http"
	"time"

	"github.com/avvvet/voicenav/internal/fallback"
	"github.com/avvvet/voicenav/internal/llm"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/metrics"
	"github.com/avvvet/voicenav/internal/models"
	"github.com/avvvet/voicenav/internal/prompts"
)

const (
	minModelConfidence = 0.70
	maxModelConfidence = 0.95
)

// Options tune the outbound request.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Classifier is immutable after construction; replace it to reconfigure.
type Classifier struct {
	provider llm.Provider
	rules    *fallback.Engine
	opts     Options
	system   string
	schema   map[string]any
	log      logger.Logger
}

// New returns a classifier. A nil provider runs rule-based only.
func New(provider llm.Provider, rules *fallback.Engine, opts Options, log logger.Logger) *Classifier {
	if rules == nil {
		rules = fallback.NewEngine()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Classifier{
		provider: provider,
		rules:    rules,
		opts:     opts,
		system:   prompts.BuildSystemInstruction(),
		schema:   prompts.ResponseSchema(),
		log:      log,
	}
}

// Model names the backend in use, or the fallback marker.
func (c *Classifier) Model() string {
	if c.provider == nil {
		return models.FallbackModel
	}
	return c.provider.Model()
}

// Classify resolves text. The only errors returned are
// UpstreamAuthError and UpstreamRateLimitError; every other failure
// yields a rule-based result.
func (c *Classifier) Classify(ctx context.Context, text string) (models.IntentResult, error) {
	if c.provider == nil {
		c.log.Debug("No model configured, running in degraded mode", map[string]interface{}{"text_length": len(text)})
		return c.fallback(text, "not_configured"), nil
	}

	start := time.Now()
	resp, err := c.provider.Complete(ctx, &llm.LLMRequest{
		System:      c.system,
		Prompt:      prompts.BuildUserPrompt(text),
		Schema:      c.schema,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	metrics.ClassifyDuration.WithLabelValues(c.provider.Model()).Observe(time.Since(start).Seconds())

	if err != nil {
		typed, surface := classifyUpstream(err)
		if surface {
			c.log.WithError(err).Error("Model provider rejected request", map[string]interface{}{
				"model": c.provider.Model(),
				"code":  typed.Code,
			})
			return models.IntentResult{}, typed
		}
		c.log.WithError(typed).Warn("Model call failed, using fallback", map[string]interface{}{"model": c.provider.Model()})
		return c.fallback(text, "upstream"), nil
	}

	reply, err := prompts.ParseLLMResponse(resp.Content)
	if err != nil {
		c.log.WithError(err).Warn("Failed to parse model reply, using fallback", map[string]interface{}{"model": c.provider.Model()})
		return c.fallback(text, "parse"), nil
	}
	if !reply.Success {
		c.log.Info("Model declined the command, using fallback", map[string]interface{}{"model": c.provider.Model()})
		return c.fallback(text, "declined"), nil
	}

	return c.normalize(reply), nil
}

// classifyUpstream types a provider failure and reports whether it must
// reach the caller. Auth and rate-limit failures do; the rest are
// transient and absorbed by the fallback path.
func classifyUpstream(err error) (*models.Error, bool) {
	code, ok := llm.StatusCode(err)
	switch {
	case llm.IsAuthError(err), ok && (code == http.StatusUnauthorized || code == http.StatusForbidden):
		return models.NewUpstreamAuthError(err), true
	case ok && code == http.StatusTooManyRequests:
		return models.NewUpstreamRateLimitError(err), true
	default:
		return models.NewUpstreamTransientError(err), false
	}
}

func (c *Classifier) fallback(text, reason string) models.IntentResult {
	metrics.FallbackTotal.WithLabelValues(reason).Inc()
	return c.rules.Resolve(text)
}

func (c *Classifier) normalize(reply *prompts.Reply) models.IntentResult {
	found := reply.Data.Entities.Clone()
	for _, key := range prompts.EntityStringKeys {
		if _, ok := found[key]; !ok || found[key] == nil {
			found[key] = ""
		}
	}
	if _, ok := found["form_fields"]; !ok {
		found["form_fields"] = map[string]string{}
	}
	if _, ok := found["keywords"]; !ok {
		found["keywords"] = []string{}
	}

	message := reply.Data.Message
	if message == "" {
		message = reply.Message
	}
	if message == "" {
		message = prompts.FallbackMessage
	}

	return models.IntentResult{
		Intent:     models.ParseIntent(reply.Data.Intent),
		Entities:   found,
		Message:    message,
		Confidence: clamp(reply.Data.Confidence, minModelConfidence, maxModelConfidence),
		Model:      c.provider.Model(),
	}
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
