// Package bot wires the flow engine to the Telegram transport.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/gtclub/gtclub-bot/internal/bot/handlers"
	"github.com/gtclub/gtclub-bot/internal/engine"
	apperrors "github.com/gtclub/gtclub-bot/internal/errors"
	"github.com/gtclub/gtclub-bot/internal/flow"
	"github.com/gtclub/gtclub-bot/internal/idempotency"
	"github.com/gtclub/gtclub-bot/internal/middleware"
	"github.com/gtclub/gtclub-bot/pkg/config"
	"github.com/gtclub/gtclub-bot/pkg/logger"
)

// Bot owns the telebot instance and routes every text or document update
// through the middleware chain into the flow engine. All routing decisions
// live in the engine; the transport only normalizes updates.
type Bot struct {
	telebot    *telebot.Bot
	engine     *engine.Engine
	idem       idempotency.Manager
	log        *slog.Logger
	errHandler *apperrors.Handler
}

// New builds the Telegram transport in webhook or long-polling mode. The
// engine is attached separately because it needs this bot's Sender first.
func New(cfg config.Config, log *slog.Logger, idem idempotency.Manager) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == config.ModeWebhook {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Bot.Listen,
			Endpoint: &telebot.WebhookEndpoint{
				PublicURL: cfg.Bot.WebhookURL,
			},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return &Bot{
		telebot:    tb,
		idem:       idem,
		log:        log,
		errHandler: apperrors.NewHandler(log, cfg.Sentry.Enabled),
	}, nil
}

// Sender returns the outbound primitives for the engine.
func (b *Bot) Sender() *Sender {
	return NewSender(b.telebot)
}

// Attach wires the engine in and registers the handler chain.
func (b *Bot) Attach(eng *engine.Engine) {
	b.engine = eng

	chain := handlers.Chain(
		b.handleUpdate,
		RecoveryMiddleware(b.log, b.errHandler),
		middleware.Idempotency(b.idem, b.log),
		ErrorHandlingMiddleware(b.errHandler),
		middleware.Logging(b.log),
		middleware.Metrics,
	)

	b.telebot.Handle(telebot.OnText, telebot.HandlerFunc(chain))
	b.telebot.Handle(telebot.OnDocument, telebot.HandlerFunc(chain))
}

// RegisterCommands publishes the flow's command table to the Telegram menu.
func (b *Bot) RegisterCommands(commands []flow.Command) {
	if len(commands) == 0 {
		return
	}

	cmds := make([]telebot.Command, 0, len(commands))
	for _, c := range commands {
		cmds = append(cmds, telebot.Command{
			Text:        strings.TrimPrefix(c.Cmd, "/"),
			Description: c.Desc,
		})
	}

	if err := b.telebot.SetCommands(cmds); err != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}
}

// Start runs the telegram bot event loop. Blocks until Stop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// HealthCheck verifies the bot can reach the Telegram API.
func (b *Bot) HealthCheck(ctx context.Context) error {
	if b.telebot == nil {
		return fmt.Errorf("telebot is not initialized")
	}

	_, err := b.telebot.Raw("getMe", nil)
	return err
}

// handleUpdate normalizes the telebot context into an engine event.
func (b *Bot) handleUpdate(c telebot.Context) error {
	if c == nil || c.Chat() == nil {
		b.log.Warn("update without chat information")
		return nil
	}

	ev := engine.Event{
		ChatID: c.Chat().ID,
		Text:   c.Text(),
	}

	if msg := c.Message(); msg != nil && msg.Document != nil {
		ev.Document = &engine.Document{
			RefID:     msg.Document.FileID,
			FileName:  msg.Document.FileName,
			MediaType: msg.Document.MIME,
			SizeBytes: msg.Document.FileSize,
		}
	}

	ctx := logger.ContextWithCorrelationID(context.Background(), logger.NewCorrelationID())
	return b.engine.Handle(ctx, ev)
}
