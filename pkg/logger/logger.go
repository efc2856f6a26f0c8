package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger builds the process-wide logger writing to stdout.
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	return InitLoggerTo(os.Stdout, logLevel, isDevelopment)
}

// InitLoggerTo is InitLogger with an explicit sink. The CLI logs to stderr so
// that rendered tables and JSON on stdout stay machine readable.
func InitLoggerTo(out io.Writer, logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(resolveLevel(logLevel, isDevelopment, log))
	log.SetFormatter(formatter(isDevelopment))

	Logger = log
	return log
}

// resolveLevel prefers the explicit level, then LOG_LEVEL, then a
// development-dependent default.
func resolveLevel(logLevel string, isDevelopment bool, log *logrus.Logger) logrus.Level {
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel == "" {
		if isDevelopment {
			return logrus.DebugLevel
		}
		return logrus.InfoLevel
	}

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
		return logrus.InfoLevel
	}
	return level
}

func formatter(isDevelopment bool) logrus.Formatter {
	if !isDevelopment || strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	}
}

// GetLogger returns the global logger, creating an info-level one on first use.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

func WithService(serviceName string) *logrus.Entry {
	return GetLogger().WithField("service", serviceName)
}

// WithRunContext tags entries belonging to one gameweek pipeline run.
func WithRunContext(runID string, gameweek int, method string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"run_id":   runID,
		"gameweek": gameweek,
		"method":   method,
	})
}

// WithOptimizationContext tags solver entries.
func WithOptimizationContext(optimizationID string, robust bool, budget float64) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"optimization_id": optimizationID,
		"robust":          robust,
		"budget":          budget,
	})
}
