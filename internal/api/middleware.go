package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/socialshields/mhdash/pkg/logging"
)

// RequestLogger logs each request with method, path, status and latency
func RequestLogger() gin.HandlerFunc {
	logger := logging.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// RateLimit applies a process-wide token bucket to write endpoints. The
// labeling workflow is human-paced, so a small bucket is enough to absorb
// scripted resubmission.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			respondError(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
