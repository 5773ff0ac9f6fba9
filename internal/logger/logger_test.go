package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLoggingLevel(t *testing.T) {
	cases := []struct {
		severity string
		want     slog.Level
	}{
		{"TRACE", LevelTrace},
		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},
		{"OFF", LevelOff},
		{"garbage", LevelInfo},
	}
	for _, c := range cases {
		lv := new(slog.LevelVar)
		setLoggingLevel(c.severity, lv)
		assert.Equal(t, c.want, lv.Level(), c.severity)
	}
}

func TestTextHandlerRendersSeverity(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(LevelInfo)
	f := &loggerFactory{format: "text"}
	l := slog.New(f.createJsonOrTextHandler(&buf, lv, ""))

	l.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "severity=INFO")
	assert.Contains(t, out, "message=hello")
}

func TestJsonHandlerRendersSeverity(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(LevelInfo)
	f := &loggerFactory{format: "json"}
	l := slog.New(f.createJsonOrTextHandler(&buf, lv, ""))

	l.Warn("careful")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "WARNING", decoded["severity"])
	assert.Equal(t, "careful", decoded["message"])
}

func TestTraceBelowDefaultThresholdIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(LevelInfo)
	f := &loggerFactory{format: "text"}
	l := slog.New(f.createJsonOrTextHandler(&buf, lv, ""))

	l.Log(context.Background(), LevelTrace, "should not appear")

	assert.Empty(t, strings.TrimSpace(buf.String()))
}
