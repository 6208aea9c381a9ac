package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"DEBUG":    log.DebugLevel,
		"info":     log.InfoLevel,
		"Warning":  log.WarnLevel,
		"error":    log.ErrorLevel,
		"critical": log.FatalLevel,
		"10":       log.DebugLevel,
		"20":       log.InfoLevel,
		"35":       log.WarnLevel,
		"40":       log.ErrorLevel,
		"50":       log.FatalLevel,
		"0":        log.DebugLevel,
	}
	for raw, want := range tests {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, log.WarnLevel)
	logger.Info("hidden")
	logger.Warn("shown", "cmd", "apt-get install")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "datalad-installer")
}
