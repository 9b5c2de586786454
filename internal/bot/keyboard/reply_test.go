package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclub/gtclub-bot/internal/flow"
)

func TestReplyMirrorsGrid(t *testing.T) {
	layout := [][]flow.Button{
		{{Text: "Прайс"}, {Text: "Файлы"}},
		{{Text: "⬅️ В начало"}},
	}

	markup := Reply(layout)
	require.NotNil(t, markup)
	assert.True(t, markup.ResizeKeyboard)
	assert.False(t, markup.OneTimeKeyboard)

	require.Len(t, markup.ReplyKeyboard, 2)
	require.Len(t, markup.ReplyKeyboard[0], 2)
	assert.Equal(t, "Прайс", markup.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "Файлы", markup.ReplyKeyboard[0][1].Text)
	require.Len(t, markup.ReplyKeyboard[1], 1)
	assert.Equal(t, "⬅️ В начало", markup.ReplyKeyboard[1][0].Text)
}

func TestReplyEmptyLayout(t *testing.T) {
	assert.Nil(t, Reply(nil))
	assert.Nil(t, Reply([][]flow.Button{}))
}
