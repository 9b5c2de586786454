// Package keyboard renders flow keyboard layouts as Telegram reply markups.
package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/gtclub/gtclub-bot/internal/flow"
)

// Reply builds a reply keyboard mirroring the layout's grid. Tapping a
// button echoes its label back as plain text, which is how the engine
// matches choices. An empty layout yields nil: no reply controls.
func Reply(layout [][]flow.Button) *telebot.ReplyMarkup {
	if len(layout) == 0 {
		return nil
	}

	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	rows := make([]telebot.Row, 0, len(layout))
	for _, row := range layout {
		buttons := make([]telebot.Btn, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, markup.Text(btn.Text))
		}
		rows = append(rows, markup.Row(buttons...))
	}

	markup.Reply(rows...)

	return markup
}
