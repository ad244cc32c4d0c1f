package analysis

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/logging"
)

func TestNewEngineLogsMetricsFailure(t *testing.T) {
	require.NoError(t, initMetrics())
	metricsInitError = fmt.Errorf("meter unavailable")
	t.Cleanup(func() { metricsInitError = nil })

	var buf bytes.Buffer
	logger := slog.New(logging.NewLineHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	NewEngine(Options{Logger: logger})

	assert.Contains(t, buf.String(), "Failed to create analysis metrics")
	assert.Contains(t, buf.String(), "meter unavailable")
}

func TestNewEngineQuietWhenMetricsReady(t *testing.T) {
	require.NoError(t, initMetrics())

	var buf bytes.Buffer
	logger := slog.New(logging.NewLineHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	NewEngine(Options{Logger: logger})

	assert.Empty(t, buf.String())
}
