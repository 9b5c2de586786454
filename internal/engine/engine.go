// Package engine implements the conversational flow interpreter: a per-chat
// finite-state machine that consumes the declarative graph plus inbound
// input and produces transitions, field captures and outbound side effects.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/gtclub/gtclub-bot/internal/flow"
	"github.com/gtclub/gtclub-bot/internal/session"
	"github.com/gtclub/gtclub-bot/pkg/metrics"
)

// Sender is the outbound side of the transport. A nil keyboard means the
// message carries no reply controls.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard [][]flow.Button) error
	SendDocument(ctx context.Context, chatID int64, ref, caption string) error
}

// Journal receives completed-order snapshots alongside admin notifications.
// Both are best-effort; failures never reach the end user.
type Journal interface {
	Record(ctx context.Context, chatID int64, stateKey string, data map[string]any) error
}

// Engine drives one chat through the flow graph per inbound event.
type Engine struct {
	flows       *flow.Provider
	sessions    *session.Store
	sender      Sender
	journal     Journal
	adminChatID int64
	log         *slog.Logger
}

// New assembles an engine. journal may be nil; adminChatID of zero disables
// admin notifications.
func New(flows *flow.Provider, sessions *session.Store, sender Sender, journal Journal, adminChatID int64, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		flows:       flows,
		sessions:    sessions,
		sender:      sender,
		journal:     journal,
		adminChatID: adminChatID,
		log:         log,
	}
}

// Handle processes one inbound event under the chat's lock, so updates from
// the same chat never interleave against one session record.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	graph := e.flows.Get()

	return e.sessions.WithLock(ev.ChatID, func() error {
		return e.handle(ctx, graph, ev)
	})
}

// handle applies the decision order of the interpreter. First match wins:
// unsubscribe keyword, consent keyword, global command, input capture,
// keyboard button, fallback.
func (e *Engine) handle(ctx context.Context, graph *flow.Graph, ev Event) error {
	text := ev.Text

	if text != "" && graph.Automations.IsUnsubscribe(text) {
		sess := e.sessions.GetOrCreate(ev.ChatID)
		sess.DND = true
		return e.sender.SendText(ctx, ev.ChatID, msgUnsubscribed, nil)
	}

	if text != "" && graph.Automations.IsConsent(text) {
		sess := e.sessions.GetOrCreate(ev.ChatID)
		sess.DND = false
		sess.Consent = true
		return e.sender.SendText(ctx, ev.ChatID, msgConsentNoted, nil)
	}

	if text == CommandStart || text == ButtonBackToStart {
		// Hard reset: the session is recreated from scratch, unlike an
		// ordinary goto transition.
		e.sessions.Reset(ev.ChatID)
		sess := e.sessions.GetOrCreate(ev.ChatID)

		if err := e.sender.SendText(ctx, ev.ChatID, msgWelcome, nil); err != nil {
			return err
		}
		return e.render(ctx, graph, sess, flow.StateStart)
	}

	if target, ok := graph.CommandState(text); ok {
		sess := e.sessions.GetOrCreate(ev.ChatID)
		return e.render(ctx, graph, sess, target)
	}

	sess := e.sessions.GetOrCreate(ev.ChatID)
	stateKey, st := graph.StateOrStart(sess.State)

	if st.Expect != nil {
		return e.capture(ctx, graph, sess, st, ev)
	}

	if btn := matchButton(st.Keyboard, text); btn != nil {
		applyButton(sess, btn)
		if btn.Goto != "" {
			return e.render(ctx, graph, sess, btn.Goto)
		}
		// A button without a target mutated data only; re-render the
		// current screen so the user keeps their keyboard.
		return e.render(ctx, graph, sess, stateKey)
	}

	if err := e.sender.SendText(ctx, ev.ChatID, msgNotUnderstood, nil); err != nil {
		return err
	}
	return e.render(ctx, graph, sess, stateKey)
}

// capture consumes the event as a field value for the state's expect spec.
// Rejection re-prompts without advancing; acceptance writes the field and
// transitions to the state's next target.
func (e *Engine) capture(ctx context.Context, graph *flow.Graph, sess *session.Session, st *flow.StateDef, ev Event) error {
	exp := st.Expect

	if ev.Document != nil && exp.AllowsDocument() {
		session.WriteField(sess.Data, exp.Field, ev.Document.fields())
		metrics.RecordCapture(true)
		return e.render(ctx, graph, sess, nextState(st))
	}

	value := strings.TrimSpace(ev.Text)

	if value == "" && exp.Required {
		metrics.RecordCapture(false)
		return e.sender.SendText(ctx, sess.ChatID, msgFieldRequired, nil)
	}

	if !flow.CheckAll(exp.Validators, value) {
		metrics.RecordCapture(false)
		return e.sender.SendText(ctx, sess.ChatID, msgInvalidValue, nil)
	}

	session.WriteField(sess.Data, exp.Field, value)
	metrics.RecordCapture(true)
	return e.render(ctx, graph, sess, nextState(st))
}

func nextState(st *flow.StateDef) string {
	if st.Next != "" {
		return st.Next
	}
	return flow.DefaultNext
}

// matchButton scans rows in declaration order and returns the first button
// whose label equals text. Later duplicate labels are unreachable.
func matchButton(keyboard [][]flow.Button, text string) *flow.Button {
	if text == "" {
		return nil
	}

	for i := range keyboard {
		for j := range keyboard[i] {
			if keyboard[i][j].Text == text {
				return &keyboard[i][j]
			}
		}
	}
	return nil
}

// applyButton performs the button's set and toggle mutations in a
// deterministic key order.
func applyButton(sess *session.Session, btn *flow.Button) {
	for _, k := range sortedKeys(btn.Set) {
		session.WriteField(sess.Data, k, btn.Set[k])
	}
	for _, k := range sortedKeys(btn.Toggle) {
		session.ToggleField(sess.Data, k, btn.Toggle[k])
	}
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
