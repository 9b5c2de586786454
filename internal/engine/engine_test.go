package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtclub/gtclub-bot/internal/flow"
	"github.com/gtclub/gtclub-bot/internal/session"
)

const testFlow = `{
  "flow": {
    "start": {
      "message": "Добро пожаловать!",
      "keyboard": [[{"text": "Меню", "goto": "menu_main"}]]
    },
    "menu_main": {
      "message": "Главное меню",
      "keyboard": [
        [{"text": "Прайс", "goto": "price"}],
        [{"text": "Оформить заказ", "goto": "order_stage"}]
      ]
    },
    "price": {
      "message": "Наш прайс:",
      "deliver": [
        {"type": "document", "url": "https://files.test/price.pdf", "title": "Прайс-лист"},
        {"type": "document", "url": "https://files.test/extra.pdf", "title": "Допы"}
      ]
    },
    "order_stage": {
      "message": "Выберите Stage",
      "keyboard": [[
        {"text": "Stage 1", "set": {"order.stage": "stage1"}, "goto": "order_options"}
      ]]
    },
    "order_options": {
      "message": "Выберите опции",
      "keyboard": [
        [{"text": "Отключить EGR", "toggle": {"order.options": "egr_off"}}],
        [{"text": "Далее ➡️", "goto": "order_car"}]
      ]
    },
    "order_car": {
      "message": "Укажите автомобиль",
      "expect": {
        "field": "order.car",
        "type": "text",
        "required": true,
        "validators": [{"type": "minlen", "value": 5}]
      },
      "next": "order_file"
    },
    "order_file": {
      "message": "Пришлите файл прошивки",
      "expect": {"field": "order.file", "type": "file_or_text", "required": true},
      "next": "order_done"
    },
    "order_done": {
      "message": "Заявка принята!",
      "notify_admin": true
    }
  },
  "automations": {
    "unsubscribe_keywords": ["стоп", "unsubscribe"],
    "consent_keywords": ["согласен"]
  },
  "commands": [
    {"cmd": "/price", "desc": "Прайс-лист", "state": "price"}
  ]
}`

type sentText struct {
	chatID   int64
	text     string
	keyboard [][]flow.Button
}

type sentDoc struct {
	chatID  int64
	ref     string
	caption string
}

// fakeSender records outbound traffic and can be told to fail selectively.
type fakeSender struct {
	texts      []sentText
	docs       []sentDoc
	failDocRef string
	failTextTo int64
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, keyboard [][]flow.Button) error {
	if f.failTextTo != 0 && chatID == f.failTextTo {
		return errors.New("text send failed")
	}
	f.texts = append(f.texts, sentText{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (f *fakeSender) SendDocument(_ context.Context, chatID int64, ref, caption string) error {
	if f.failDocRef != "" && ref == f.failDocRef {
		return errors.New("document send failed")
	}
	f.docs = append(f.docs, sentDoc{chatID: chatID, ref: ref, caption: caption})
	return nil
}

func (f *fakeSender) lastText() sentText {
	return f.texts[len(f.texts)-1]
}

type journalEntry struct {
	chatID   int64
	stateKey string
	data     map[string]any
}

type fakeJournal struct {
	entries []journalEntry
	err     error
}

func (f *fakeJournal) Record(_ context.Context, chatID int64, stateKey string, data map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, journalEntry{chatID: chatID, stateKey: stateKey, data: data})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	testChatID  = int64(1001)
	testAdminID = int64(777)
)

func newTestEngine(t *testing.T, sender *fakeSender, journal Journal) (*Engine, *session.Store) {
	t.Helper()

	graph, err := flow.Parse([]byte(testFlow))
	require.NoError(t, err)

	flows := flow.NewProvider(graph, "", testLogger())
	sessions := session.NewStore(flow.StateStart)
	eng := New(flows, sessions, sender, journal, testAdminID, testLogger())
	return eng, sessions
}

func TestStartCommandResetsSession(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_car"
	sess.Data["order"] = map[string]any{"stage": "stage1"}

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "/start"})
	require.NoError(t, err)

	fresh := sessions.GetOrCreate(testChatID)
	assert.Equal(t, "start", fresh.State)
	assert.Empty(t, fresh.Data)

	require.Len(t, sender.texts, 2)
	assert.Equal(t, msgWelcome, sender.texts[0].text)
	assert.Equal(t, "Добро пожаловать!", sender.texts[1].text)
	assert.NotEmpty(t, sender.texts[1].keyboard)
}

func TestBackToStartButtonResetsFromAnyState(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_file"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: ButtonBackToStart})
	require.NoError(t, err)

	assert.Equal(t, "start", sessions.GetOrCreate(testChatID).State)
}

func TestUnsubscribeKeywordSetsDND(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "menu_main"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "СТОП"})
	require.NoError(t, err)

	assert.True(t, sess.DND)
	assert.Equal(t, "menu_main", sess.State, "unsubscribe must not move the session")
	require.Len(t, sender.texts, 1)
	assert.Equal(t, msgUnsubscribed, sender.texts[0].text)
}

func TestConsentKeywordClearsDND(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.DND = true
	sess.Consent = false

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "согласен"})
	require.NoError(t, err)

	assert.False(t, sess.DND)
	assert.True(t, sess.Consent)
	require.Len(t, sender.texts, 1)
	assert.Equal(t, msgConsentNoted, sender.texts[0].text)
}

func TestCommandJumpsToBoundState(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "/price"})
	require.NoError(t, err)

	assert.Equal(t, "price", sessions.GetOrCreate(testChatID).State)
	require.Len(t, sender.docs, 2)
	assert.Equal(t, "https://files.test/price.pdf", sender.docs[0].ref)
	assert.Equal(t, "Прайс-лист", sender.docs[0].caption)
}

func TestButtonSetThenGoto(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_stage"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "Stage 1"})
	require.NoError(t, err)

	order := sess.Data["order"].(map[string]any)
	assert.Equal(t, "stage1", order["stage"])
	assert.Equal(t, "order_options", sess.State)
}

func TestButtonToggleWithoutGotoReRenders(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_options"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "Отключить EGR"})
	require.NoError(t, err)

	order := sess.Data["order"].(map[string]any)
	assert.Equal(t, []any{"egr_off"}, order["options"])
	assert.Equal(t, "order_options", sess.State)
	require.Len(t, sender.texts, 1)
	assert.Equal(t, "Выберите опции", sender.texts[0].text)

	// Pressing again removes the option and keeps the screen.
	err = eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "Отключить EGR"})
	require.NoError(t, err)
	assert.Equal(t, []any{}, order["options"])
	assert.Equal(t, "order_options", sess.State)
}

func TestCaptureRejectsEmptyRequired(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_car"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "   "})
	require.NoError(t, err)

	assert.Equal(t, "order_car", sess.State)
	assert.Empty(t, sess.Data)
	assert.Equal(t, msgFieldRequired, sender.lastText().text)
}

func TestCaptureRejectsInvalidValue(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_car"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "Kia"})
	require.NoError(t, err)

	assert.Equal(t, "order_car", sess.State)
	assert.Empty(t, sess.Data)
	assert.Equal(t, msgInvalidValue, sender.lastText().text)
}

func TestCaptureAcceptsAndAdvances(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_car"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "  Toyota Supra  "})
	require.NoError(t, err)

	order := sess.Data["order"].(map[string]any)
	assert.Equal(t, "Toyota Supra", order["car"], "captured value must be trimmed")
	assert.Equal(t, "order_file", sess.State)
	assert.Equal(t, "Пришлите файл прошивки", sender.lastText().text)
}

func TestCaptureAcceptsDocument(t *testing.T) {
	sender := &fakeSender{}
	journal := &fakeJournal{}
	eng, sessions := newTestEngine(t, sender, journal)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_file"

	doc := &Document{RefID: "file-abc", FileName: "stage1.bin", MediaType: "application/octet-stream", SizeBytes: 2048}
	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Document: doc})
	require.NoError(t, err)

	order := sess.Data["order"].(map[string]any)
	file := order["file"].(map[string]any)
	assert.Equal(t, "file-abc", file["file_id"])
	assert.Equal(t, "stage1.bin", file["file_name"])

	assert.Equal(t, "order_done", sess.State)

	// order_done notifies the admin and journals the order.
	require.Len(t, journal.entries, 1)
	assert.Equal(t, testChatID, journal.entries[0].chatID)
	assert.Equal(t, "order_done", journal.entries[0].stateKey)

	admin := sender.lastText()
	assert.Equal(t, testAdminID, admin.chatID)
	assert.Contains(t, admin.text, "order_done")
	assert.Contains(t, admin.text, "file-abc")
}

func TestDocumentDeliveryFailureIsIsolated(t *testing.T) {
	sender := &fakeSender{failDocRef: "https://files.test/price.pdf"}
	eng, _ := newTestEngine(t, sender, nil)

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "/price"})
	require.NoError(t, err, "a broken document must not fail the update")

	// Second document still goes out.
	require.Len(t, sender.docs, 1)
	assert.Equal(t, "https://files.test/extra.pdf", sender.docs[0].ref)

	// The user gets an apology naming the broken file.
	assert.Contains(t, sender.lastText().text, "Прайс-лист")
}

func TestAdminNotifyFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{failTextTo: testAdminID}
	journal := &fakeJournal{err: errors.New("db down")}
	eng, sessions := newTestEngine(t, sender, journal)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "order_file"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "готово, жду"})
	require.NoError(t, err)

	assert.Equal(t, "order_done", sess.State)
	assert.Equal(t, "Заявка принята!", sender.lastText().text, "user still sees the confirmation")
}

func TestUnknownInputFallsBackToCurrentState(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "menu_main"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "何これ"})
	require.NoError(t, err)

	assert.Equal(t, "menu_main", sess.State)
	require.Len(t, sender.texts, 2)
	assert.Equal(t, msgNotUnderstood, sender.texts[0].text)
	assert.Equal(t, "Главное меню", sender.texts[1].text)
}

func TestStaleSessionStateFallsBackToStart(t *testing.T) {
	sender := &fakeSender{}
	eng, sessions := newTestEngine(t, sender, nil)

	sess := sessions.GetOrCreate(testChatID)
	sess.State = "removed_by_reload"

	err := eng.Handle(context.Background(), Event{ChatID: testChatID, Text: "何これ"})
	require.NoError(t, err)

	assert.Equal(t, "start", sess.State)
	assert.Equal(t, "Добро пожаловать!", sender.lastText().text)
}
