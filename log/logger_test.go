package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
)

func TestStdLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLoggerTo(&buf, LevelWarn)

	logger.Debug("debug %d", 1)
	logger.Info("info %d", 2)
	logger.Warn("warn %d", 3)
	logger.Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "NONE", LevelNone.String())
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(NewStdLoggerTo(&buf, LevelDebug))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] d")
	assert.Contains(t, out, "[INFO] i")
	assert.Contains(t, out, "[WARN] w")
	assert.Contains(t, out, "[ERROR] e")
}

func TestGologLogger(t *testing.T) {
	g := golog.New()
	g.SetOutput(os.Stderr)

	logger := NewGologLogger(g)
	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())

	// Should not panic at any level.
	logger.Debug("debug %s", "msg")
	logger.Info("info %s", "msg")
	logger.Warn("warn %s", "msg")
	logger.Error("error %s", "msg")

	logger.SetLevel(LevelNone)
	logger.Info("suppressed")
}
