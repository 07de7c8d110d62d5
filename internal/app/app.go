// Package app assembles pipeline components from configuration. Both
// entrypoints build through it.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/avvvet/voicenav/internal/automation"
	"github.com/avvvet/voicenav/internal/browser"
	"github.com/avvvet/voicenav/internal/config"
	"github.com/avvvet/voicenav/internal/fallback"
	"github.com/avvvet/voicenav/internal/handlers"
	"github.com/avvvet/voicenav/internal/intent"
	"github.com/avvvet/voicenav/internal/llm"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/memory"
	"github.com/avvvet/voicenav/internal/messenger"
	"github.com/avvvet/voicenav/internal/transport"
)

// NewClassifier builds the model classifier, or a rule-based one when no
// model is configured.
func NewClassifier(cfg *config.Config, log logger.Logger) (*intent.Classifier, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		log.Warn("⚠️ No model configured, running rule-based only", map[string]interface{}{"provider": cfg.LLM.Provider})
	} else {
		log.Info("🤖 Model provider ready", map[string]interface{}{"provider": cfg.LLM.Provider, "model": provider.Model()})
	}
	return intent.New(provider, fallback.NewEngine(), intent.Options{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, log), nil
}

// NewCache connects the Redis result cache. It returns nils when the
// cache is disabled.
func NewCache(cfg *config.Config, log logger.Logger) (*memory.Manager, *memory.RedisStore, error) {
	if !cfg.Redis.Enabled {
		return nil, nil, nil
	}
	log.Info("🔌 Connecting to Redis...", map[string]interface{}{"url": cfg.Redis.URL})
	store, err := memory.NewRedisStore(cfg.Redis.URL, cfg.Redis.TTL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("✅ Redis connected", nil)
	return memory.NewManager(store, log), store, nil
}

// NewIntentHandler builds the resolution facade. cache may be nil.
func NewIntentHandler(cfg *config.Config, classifier *intent.Classifier, cache *memory.Manager, log logger.Logger) *handlers.IntentHandler {
	opts := []handlers.Option{
		handlers.WithLogger(log),
		handlers.WithMaxTextLength(cfg.Pipeline.MaxTextLength),
	}
	if cache != nil {
		opts = append(opts, handlers.WithCache(cache))
	}
	return handlers.NewIntentHandler(classifier, opts...)
}

// NewSender picks where actions execute. Mode none yields a nil sender
// and the pipeline only resolves.
func NewSender(cfg *config.Config, conn *nats.Conn, log logger.Logger) (messenger.Sender, func(), error) {
	noop := func() {}
	switch cfg.Browser.Mode {
	case "remote", "local":
		chrome, err := browser.New(browser.Options{
			DevToolsURL: cfg.Browser.DevToolsURL,
			Headless:    cfg.Browser.Headless,
		}, log)
		if err != nil {
			return nil, noop, err
		}
		return NewMessenger(cfg, chrome, log), chrome.Close, nil
	case "relay":
		if conn == nil {
			return nil, noop, fmt.Errorf("relay mode needs a NATS connection")
		}
		return transport.NewActionClient(conn, cfg.NATS.ActionSubject, cfg.Browser.ReplyTimeout, log), noop, nil
	default:
		return nil, noop, nil
	}
}

// NewMessenger wires a messenger with the default goroutine agent.
func NewMessenger(cfg *config.Config, b automation.Browser, log logger.Logger) *messenger.Messenger {
	injector := messenger.AgentInjector{
		Options: automation.Options{
			SearchURL:       cfg.Browser.SearchURL,
			FieldSettle:     cfg.Browser.FieldSettle,
			MaxSummaryChars: cfg.Browser.MaxSummaryChars,
		},
		Log: log,
	}
	return messenger.New(b, injector, messenger.Config{
		DefaultPageURL: cfg.Browser.DefaultPageURL,
		LoadSettle:     cfg.Browser.LoadSettle,
		InjectSettle:   cfg.Browser.InjectSettle,
		ReplyTimeout:   cfg.Browser.ReplyTimeout,
	}, log)
}

// SetupTracing installs a stdout span exporter when tracing is enabled.
// The returned function flushes and stops it.
func SetupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.Tracing.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
