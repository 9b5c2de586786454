package bot

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/gtclub/gtclub-bot/internal/bot/keyboard"
	"github.com/gtclub/gtclub-bot/internal/flow"
)

// Sender implements the engine's outbound primitives over telebot.
type Sender struct {
	telebot *telebot.Bot
}

// NewSender wraps a telebot instance.
func NewSender(tb *telebot.Bot) *Sender {
	return &Sender{telebot: tb}
}

// SendText sends a plain text message, attaching a reply keyboard when the
// layout is non-empty.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string, layout [][]flow.Button) error {
	if text == "" {
		// Telegram rejects empty message bodies.
		text = "…"
	}

	markup := keyboard.Reply(layout)
	if markup == nil {
		_, err := s.telebot.Send(telebot.ChatID(chatID), text)
		return err
	}

	_, err := s.telebot.Send(telebot.ChatID(chatID), text, markup)
	return err
}

// SendDocument sends a document by URL or Telegram file id with an optional
// caption.
func (s *Sender) SendDocument(ctx context.Context, chatID int64, ref, caption string) error {
	doc := &telebot.Document{
		File:    fileFromRef(ref),
		Caption: caption,
	}

	_, err := s.telebot.Send(telebot.ChatID(chatID), doc)
	return err
}

func fileFromRef(ref string) telebot.File {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return telebot.FromURL(ref)
	}

	return telebot.File{FileID: ref}
}
