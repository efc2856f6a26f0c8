package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per request.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"service":    "fpl-optimizer",
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(startTime),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})

		if c.Request.URL.RawQuery != "" {
			entry = entry.WithField("query", c.Request.URL.RawQuery)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Internal Server Error")
		case status >= 400:
			entry.Warn("Client Error")
		default:
			entry.Info("Request completed")
		}
	}
}

// CORS allows the configured origins, or every origin when none are given.
func CORS(origins ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if len(allowed) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
