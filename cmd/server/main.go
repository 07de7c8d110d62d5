package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/voicenav/internal/app"
	"github.com/avvvet/voicenav/internal/config"
	"github.com/avvvet/voicenav/internal/handlers"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/pipeline"
	"github.com/avvvet/voicenav/internal/server"
	"github.com/avvvet/voicenav/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	lg := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	lg.Info("🚀 Starting voicenav...", map[string]interface{}{
		"service":     cfg.Service.Name,
		"environment": cfg.Service.Environment,
		"browser":     cfg.Browser.Mode,
	})

	shutdownTracing, err := app.SetupTracing(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to set up tracing: %v", err)
	}

	classifier, err := app.NewClassifier(cfg, lg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize classifier: %v", err)
	}

	cache, redisStore, err := app.NewCache(cfg, lg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}

	intentHandler := app.NewIntentHandler(cfg, classifier, cache, lg)
	lg.Info("✅ Intent handler initialized", map[string]interface{}{"model": intentHandler.Model()})

	var conn *nats.Conn
	if cfg.NATS.Enabled {
		lg.Info("📡 Connecting to NATS...", map[string]interface{}{"url": cfg.NATS.URL})
		conn, err = transport.Connect(cfg.NATS, cfg.Service.Name, lg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to NATS: %v", err)
		}
	}

	sender, closeBrowser, err := app.NewSender(cfg, conn, lg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize action sender: %v", err)
	}

	runner := pipeline.New(intentHandler, nil, sender, lg)

	var natsTransport *transport.NATSTransport
	if conn != nil {
		natsTransport = transport.NewNATSTransport(conn, cfg.NATS, intentHandler, lg)
		if err := natsTransport.Start(); err != nil {
			log.Fatalf("❌ Failed to start NATS transport: %v", err)
		}
		lg.Info("👂 Listening on subject", map[string]interface{}{"subject": cfg.NATS.RequestSubject})
	}

	var checks []server.Check
	if redisStore != nil {
		checks = append(checks, server.Check{Name: "redis", Ping: redisStore.Ping})
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Router(cfg, intentHandler, runner, lg, checks...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()
	lg.Info("✅ voicenav is running!", map[string]interface{}{"addr": cfg.Server.Addr})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			reload(intentHandler, lg)
			continue
		}
		lg.Info("🛑 Received signal", map[string]interface{}{"signal": sig.String()})
		break
	}
	lg.Info("🔄 Shutting down gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.WithError(err).Warn("⚠️ Error stopping HTTP server", nil)
	}
	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			lg.WithError(err).Warn("⚠️ Error closing NATS transport", nil)
		}
	}
	if conn != nil {
		conn.Close()
	}
	closeBrowser()
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			lg.WithError(err).Warn("⚠️ Error closing Redis store", nil)
		}
	}
	if err := shutdownTracing(ctx); err != nil {
		lg.WithError(err).Warn("⚠️ Error flushing traces", nil)
	}

	lg.Info("👋 voicenav stopped", nil)
}

// reload rebuilds the classifier from fresh configuration. Commands in
// flight keep the classifier they started with.
func reload(h *handlers.IntentHandler, lg logger.Logger) {
	cfg, err := config.Load()
	if err != nil {
		lg.WithError(err).Error("⚠️ Config reload failed, keeping current classifier", nil)
		return
	}
	next, err := app.NewClassifier(cfg, lg)
	if err != nil {
		lg.WithError(err).Error("⚠️ Classifier rebuild failed, keeping current classifier", nil)
		return
	}
	h.SwapClassifier(next)
}
