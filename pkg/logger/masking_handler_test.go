package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskingHandlerMasksSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.Info("bot starting",
		slog.String("token", "123456:AAEexample"),
		slog.String("mode", "polling"),
	)

	out := buf.String()
	assert.NotContains(t, out, "AAEexample")
	assert.Contains(t, out, `"token":"***"`)
	assert.Contains(t, out, `"mode":"polling"`)
}

func TestMaskingHandlerIsCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.Info("config loaded", slog.String("API_KEY", "sk-live-42"))

	out := buf.String()
	assert.NotContains(t, out, "sk-live-42")
	assert.Contains(t, out, "***")
}

func TestMaskingHandlerMasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil))).
		With(slog.String("dsn", "postgres://user:pw@db/app"))

	log.Info("ping")

	out := buf.String()
	assert.NotContains(t, out, "user:pw")
	assert.Contains(t, out, `"dsn":"***"`)
}
