package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

// Logger writes one line per request.
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		log.Info("request", fields)
	}
}

// Recovery turns a panic into a 500 with the standard error body.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", map[string]interface{}{"panic": r, "path": c.Request.URL.Path})
				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorBody{
					Success: false,
					Error:   models.ErrorDetail{Code: models.ErrorInternal, Message: "internal server error"},
				})
			}
		}()
		c.Next()
	}
}

// RateLimit admits requests through a shared token bucket. A limit of
// zero or less disables it.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorBody{
				Success: false,
				Error:   models.ErrorDetail{Code: models.ErrorRateLimited, Message: "too many requests"},
			})
			return
		}
		c.Next()
	}
}
