package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerTo(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		development   bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{"production default", "", false, logrus.InfoLevel, true},
		{"development default", "", true, logrus.DebugLevel, false},
		{"explicit level", "WARN", false, logrus.WarnLevel, true},
		{"invalid level defaults to info", "loud", true, logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "")
			t.Setenv("LOG_FORMAT", "")
			var buf bytes.Buffer

			log := InitLoggerTo(&buf, tt.logLevel, tt.development)
			assert.Equal(t, tt.expectedLevel, log.GetLevel())
			assert.Same(t, log, GetLogger())

			buf.Reset()
			log.Warn("sample")
			var decoded map[string]interface{}
			isJSON := json.Unmarshal(buf.Bytes(), &decoded) == nil
			assert.Equal(t, tt.expectJSON, isJSON)
		})
	}
}

func TestInitLogger_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer

	log := InitLoggerTo(&buf, "", true)
	assert.Equal(t, logrus.ErrorLevel, log.GetLevel())

	log.Error("sample")
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "sample", decoded["msg"])
}

func TestContextEntries(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "info", false)

	entry := WithRunContext("run-1", 12, "hybrid")
	assert.Equal(t, "run-1", entry.Data["run_id"])
	assert.Equal(t, 12, entry.Data["gameweek"])
	assert.Equal(t, "hybrid", entry.Data["method"])

	assert.Equal(t, "fpl-client", WithService("fpl-client").Data["service"])
	assert.Equal(t, true, WithOptimizationContext("opt", true, 100).Data["robust"])
}
