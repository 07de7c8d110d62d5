// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/avvvet/voicenav/internal/config"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
	"github.com/avvvet/voicenav/internal/pipeline"
)

// Runner executes a command end to end.
type Runner interface {
	Run(ctx context.Context, text string) (*models.CommandOutcome, error)
}

type Handler struct {
	intents pipeline.Resolver
	runner  Runner
	timeout time.Duration
	log     logger.Logger
}

// Check is a readiness probe reported by /health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Router registers routes and middleware.
func Router(cfg *config.Config, intents pipeline.Resolver, runner Runner, log logger.Logger, checks ...Check) *gin.Engine {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	h := &Handler{intents: intents, runner: runner, timeout: cfg.Server.RequestTimeout, log: log}

	r := gin.New()
	r.Use(Recovery(log), Logger(log), otelgin.Middleware(cfg.Service.Name))

	v1 := r.Group("/api/v1")
	v1.Use(RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
	{
		v1.POST("/intent", h.Intent)
		v1.POST("/commands", h.Command)
	}

	r.GET("/health", health(cfg.Service.Name, checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func health(service string, checks []Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(checks) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": service})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for _, chk := range checks {
			if err := chk.Ping(ctx); err != nil {
				results[chk.Name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[chk.Name] = "ok"
		}
		c.JSON(code, gin.H{"status": status, "service": service, "checks": results})
	}
}

// Intent classifies a command without executing it.
func (h *Handler) Intent(c *gin.Context) {
	var req models.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, models.NewValidationError("invalid request: %v", err))
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	resp, err := h.intents.ProcessIntent(ctx, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Command runs the full pipeline for a command.
func (h *Handler) Command(c *gin.Context) {
	var req models.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, models.NewValidationError("invalid request: %v", err))
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	out, err := h.runner.Run(ctx, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(models.HTTPStatus(err), models.Body(err))
}
