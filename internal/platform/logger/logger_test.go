package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/platform/config"
	"veriflow/pkg/requestcontext"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Logging{Level: "info", Service: "veriflow"})

	ctx := requestcontext.WithRequestID(context.Background(), "corr-1")
	log.InfoContext(ctx, "decision made", "request_id", "abc")
	log.DebugContext(ctx, "suppressed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "veriflow", record["service"])
	assert.Equal(t, "corr-1", record["correlation_id"])
	assert.Equal(t, "abc", record["request_id"])
	assert.Equal(t, "decision made", record["msg"])
}
