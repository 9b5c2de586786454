// Package middleware carries the bot handler middleware chain pieces.
package middleware

import (
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/gtclub/gtclub-bot/internal/bot/handlers"
)

// Logging logs basic telemetry about incoming updates.
func Logging(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()

			chatID := int64(0)
			if c != nil && c.Chat() != nil {
				chatID = c.Chat().ID
			}

			kind := updateKind(c)

			err := next(c)

			status := "ok"
			if err != nil {
				status = "error"
			}

			log.Info("handled update",
				slog.Int64("chat_id", chatID),
				slog.String("kind", kind),
				slog.String("status", status),
				slog.Duration("duration", time.Since(start)),
			)

			return err
		}
	}
}

func updateKind(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if msg := c.Message(); msg != nil && msg.Document != nil {
		return "document"
	}

	if c.Text() != "" {
		return "text"
	}

	return "unknown"
}
