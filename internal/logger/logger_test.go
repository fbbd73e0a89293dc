package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.level.String(), "Level(%d)", tt.level)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelDebug)

	l.Debug("node-1", "debug message")
	l.Info("node-1", "info message")
	l.Warn("node-1", "warn message")
	l.Error("node-1", "error message")

	output := buf.String()

	assert.Contains(t, output, "DEBUG")
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "WARN")
	assert.Contains(t, output, "ERROR")
	assert.Contains(t, output, "node-1", "expected node ID in log")
	assert.Equal(t, 4, strings.Count(output, "\n"))
}

func TestLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelWarn)

	l.Debug("", "debug message")
	l.Info("", "info message")
	l.Warn("", "warn message")
	l.Error("", "error message")

	output := buf.String()

	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestLoggerSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelError)

	l.Info("", "should not appear")
	assert.NotContains(t, buf.String(), "should not appear")
	assert.False(t, l.Enabled(LevelInfo))

	l.SetLevel(LevelInfo)
	l.Info("", "should appear")

	assert.Contains(t, buf.String(), "should appear")
	assert.True(t, l.Enabled(LevelInfo))
}

func TestLoggerWithoutNodeID(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelInfo)

	l.Info("", "message without node")

	output := buf.String()

	// no structured field for an empty node
	assert.NotContains(t, output, `"node"`)
	assert.Contains(t, output, "message without node")
}

func TestLoggerFormatArgs(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, LevelInfo)

	l.Info("node-1", "count: %d, name: %s", 42, "test")

	assert.Contains(t, buf.String(), "count: 42, name: test")
}
