package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	WithContext(ctx).Info("reserved", "seats", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "reserved", entry["msg"])
	assert.Equal(t, 3.0, entry["seats"])
}

func TestWithContextWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "text")

	WithContext(context.Background()).Info("summary")

	assert.Contains(t, buf.String(), "msg=summary")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestNewRequestIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")

	WithFields("reservation_id", "r-1", "event_type", "reservation.cancelled").Info("processing")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "r-1", entry["reservation_id"])
	assert.Equal(t, "reservation.cancelled", entry["event_type"])
}
