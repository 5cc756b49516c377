package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level logger.LogLevel
		ok    bool
	}{
		{"debug", logger.DebugLevel, true},
		{"info", logger.InfoLevel, true},
		{"", logger.InfoLevel, true},
		{"warning", logger.WarnLevel, true},
		{"error", logger.ErrorLevel, true},
		{"verbose", logger.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := logger.ParseLevel(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestScopedLoggerFields(t *testing.T) {
	logger.SetLogLevel(logger.DebugLevel)

	var buf bytes.Buffer
	log := logger.New(&buf).With("device", "/dev/nvme0n1")
	log.ErrorWithCode(errors.New().New(errors.ErrTimeout)).Msg("probe failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/dev/nvme0n1", entry["device"])
	assert.Equal(t, "operation_timeout", entry["error_code"])
	assert.Equal(t, "probe failed", entry["message"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().With("k", "v").Info().Str("x", "y").Msg("ignored")
	})
}
