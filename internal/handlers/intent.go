package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avvvet/voicenav/internal/intent"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/metrics"
	"github.com/avvvet/voicenav/internal/models"
	"github.com/avvvet/voicenav/internal/prompts"
)

// Cache holds previously classified commands.
type Cache interface {
	Lookup(ctx context.Context, text string) (models.IntentResult, bool)
	Remember(ctx context.Context, text string, result models.IntentResult)
}

type IntentHandler struct {
	classifier atomic.Pointer[intent.Classifier]
	cache      Cache
	maxText    int
	log        logger.Logger
	now        func() time.Time
}

type Option func(*IntentHandler)

// WithCache enables result caching. A nil cache is ignored.
func WithCache(c Cache) Option {
	return func(h *IntentHandler) {
		if c != nil {
			h.cache = c
		}
	}
}

// WithMaxTextLength bounds accepted commands, in runes.
func WithMaxTextLength(n int) Option {
	return func(h *IntentHandler) { h.maxText = n }
}

func WithLogger(l logger.Logger) Option {
	return func(h *IntentHandler) {
		if l != nil {
			h.log = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(h *IntentHandler) { h.now = now }
}

func NewIntentHandler(classifier *intent.Classifier, opts ...Option) *IntentHandler {
	h := &IntentHandler{
		maxText: 1000,
		log:     logger.NewNoOpLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if classifier == nil {
		classifier = intent.New(nil, nil, intent.Options{}, h.log)
	}
	h.classifier.Store(classifier)
	return h
}

// SwapClassifier installs next for subsequent commands. Calls already in
// flight finish on the classifier they started with.
func (h *IntentHandler) SwapClassifier(next *intent.Classifier) {
	if next == nil {
		return
	}
	prev := h.classifier.Swap(next)
	h.log.Info("🔁 Classifier replaced", map[string]interface{}{
		"previous": prev.Model(),
		"current":  next.Model(),
	})
}

// Model reports the backend currently serving commands.
func (h *IntentHandler) Model() string {
	return h.classifier.Load().Model()
}

// ProcessIntent resolves one command. The only errors returned are
// validation, upstream auth and upstream rate-limit failures.
func (h *IntentHandler) ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error) {
	start := h.now()

	if request == nil {
		return nil, models.NewValidationError("request is required")
	}
	cmd, err := models.NewCommand(request.Text, h.maxText)
	if err != nil {
		h.log.Debug("Rejected command", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	requestID := request.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := h.log.WithFields(map[string]interface{}{"request_id": requestID})

	result, cached := h.lookup(ctx, cmd.Text())
	if !cached {
		classifier := h.classifier.Load()
		result, err = classifier.Classify(ctx, cmd.Text())
		if err != nil {
			log.WithError(err).Warn("Classification failed", map[string]interface{}{"model": classifier.Model()})
			return nil, err
		}
		if h.cache != nil {
			h.cache.Remember(ctx, cmd.Text(), result)
		}
	}

	result = h.validateAndCleanResult(result)
	metrics.CommandsTotal.WithLabelValues(string(result.Intent), source(result, cached)).Inc()

	response := &models.IntentResponse{
		Intent:     result.Intent,
		Entities:   result.Entities,
		Message:    result.Message,
		Confidence: result.Confidence,
		Metadata: models.ResponseMetadata{
			ProcessingTime: h.now().Sub(start).Milliseconds(),
			Timestamp:      h.now().UTC().Format(time.RFC3339),
			Model:          result.Model,
			Pattern:        result.Pattern,
			RequestID:      requestID,
			Cached:         cached,
		},
	}

	log.Info("Intent processed", map[string]interface{}{
		"intent":     response.Intent,
		"confidence": response.Confidence,
		"model":      response.Metadata.Model,
		"cached":     cached,
		"elapsed_ms": response.Metadata.ProcessingTime,
	})

	return response, nil
}

func (h *IntentHandler) lookup(ctx context.Context, text string) (models.IntentResult, bool) {
	if h.cache == nil {
		return models.IntentResult{}, false
	}
	return h.cache.Lookup(ctx, text)
}

func (h *IntentHandler) validateAndCleanResult(r models.IntentResult) models.IntentResult {
	if !r.Intent.Valid() {
		r.Intent = models.ParseIntent(string(r.Intent))
	}
	if r.Entities == nil {
		r.Entities = models.Entities{}
	}
	if r.Message == "" {
		r.Message = prompts.FallbackMessage
	}
	switch {
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	if r.Model == "" {
		r.Model = models.FallbackModel
	}
	return r
}

func source(r models.IntentResult, cached bool) string {
	switch {
	case cached:
		return "cache"
	case r.IsFallback():
		return "fallback"
	default:
		return "model"
	}
}
