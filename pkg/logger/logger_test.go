package logger

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(fn func()) string {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)
	fn()
	return buf.String()
}

func TestConsoleLogger_Levels(t *testing.T) {
	t.Run("info level suppresses debug", func(t *testing.T) {
		l := NewConsoleLogger("info")
		out := capture(func() {
			l.Debug("hidden")
			l.Info("shown")
		})
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "[INFO] shown")
	})

	t.Run("error level suppresses warnings", func(t *testing.T) {
		l := NewConsoleLogger("error")
		out := capture(func() {
			l.Warn("hidden")
			l.Error("failed", errors.New("boom"))
		})
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "[ERROR] failed")
		assert.Contains(t, out, "error=boom")
	})
}

func TestConsoleLogger_Fields(t *testing.T) {
	l := NewConsoleLogger("debug")
	out := capture(func() {
		l.Info("event", map[string]interface{}{"username": "alice"})
	})
	assert.Contains(t, out, "username=alice")
}

func TestConsoleLogger_WithFields(t *testing.T) {
	l := NewConsoleLogger("debug").WithFields(map[string]interface{}{"component": "auth"})
	out := capture(func() {
		l.Info("event")
	})
	assert.Contains(t, out, "component=auth")
}
