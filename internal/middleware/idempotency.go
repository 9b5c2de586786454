package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/gtclub/gtclub-bot/internal/bot/handlers"
	"github.com/gtclub/gtclub-bot/internal/idempotency"
)

const updateTTL = 24 * time.Hour

// Idempotency ensures each Telegram update drives the engine at most once,
// guarding against webhook redeliveries.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			executed, err := manager.Execute(context.Background(), key, updateTTL, func(context.Context) error {
				return next(c)
			})
			if err != nil {
				return err
			}

			if !executed {
				log.Debug("duplicate update skipped", slog.String("key", key))
			}

			return nil
		}
	}
}

func updateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	msg := c.Message()
	if msg == nil || msg.ID == 0 {
		return ""
	}

	chatID := int64(0)
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}

	return fmt.Sprintf("msg:%d:%d", chatID, msg.ID)
}
