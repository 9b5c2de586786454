package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "github.com/gtclub/gtclub-bot/internal/errors"
	"github.com/gtclub/gtclub-bot/internal/flow"
	"github.com/gtclub/gtclub-bot/internal/session"
	"github.com/gtclub/gtclub-bot/pkg/metrics"
)

// render moves the session to stateKey and dispatches the destination
// state's effects: message with keyboard, document deliveries, admin
// notification. An unknown target falls back to the start state's
// definition without touching captured data.
func (e *Engine) render(ctx context.Context, graph *flow.Graph, sess *session.Session, stateKey string) error {
	from := sess.State
	key, st := graph.StateOrStart(stateKey)
	if key != stateKey {
		e.log.Warn("state missing from graph, rendering start instead",
			slog.Int64("chat_id", sess.ChatID), slog.String("state", stateKey))
	}

	sess.State = key
	metrics.RecordTransition(from, key)

	if st.Message != "" || len(st.Keyboard) > 0 {
		if err := e.sender.SendText(ctx, sess.ChatID, st.Message, st.Keyboard); err != nil {
			return apperrors.NewTransportError("send state message", err)
		}
	}

	for _, doc := range st.Deliver {
		if doc.Type != "document" || doc.URL == "" {
			continue
		}

		if err := e.sender.SendDocument(ctx, sess.ChatID, doc.URL, doc.Title); err != nil {
			// One broken document must not block the rest of the list.
			metrics.RecordDocument(false)
			e.log.Warn("document delivery failed",
				slog.Int64("chat_id", sess.ChatID),
				slog.String("state", key),
				slog.String("url", doc.URL),
				slog.Any("error", err))

			title := doc.Title
			if title == "" {
				title = "file"
			}
			if sendErr := e.sender.SendText(ctx, sess.ChatID, msgDeliveryFailed+title, nil); sendErr != nil {
				e.log.Error("failed to report delivery failure",
					slog.Int64("chat_id", sess.ChatID), slog.Any("error", sendErr))
			}
			continue
		}

		metrics.RecordDocument(true)
	}

	if st.NotifyAdmin {
		e.notifyAdmin(ctx, sess, key)
	}

	return nil
}

// notifyAdmin sends the operator a snapshot of the session's data document
// and records it in the journal. Both are best-effort: failures are logged
// and swallowed, never surfaced to the chat.
func (e *Engine) notifyAdmin(ctx context.Context, sess *session.Session, stateKey string) {
	snapshot, err := json.Marshal(sess.Data)
	if err != nil {
		e.log.Error("failed to serialize session data",
			slog.Int64("chat_id", sess.ChatID), slog.Any("error", err))
		snapshot = []byte("{}")
	}

	if e.journal != nil {
		if err := e.journal.Record(ctx, sess.ChatID, stateKey, sess.Data); err != nil {
			e.log.Warn("journal record failed",
				slog.Int64("chat_id", sess.ChatID), slog.Any("error", err))
		}
	}

	if e.adminChatID == 0 {
		return
	}

	text := fmt.Sprintf("Notify: user %d reached state %s\nData: %s", sess.ChatID, stateKey, snapshot)
	if err := e.sender.SendText(ctx, e.adminChatID, text, nil); err != nil {
		metrics.RecordAdminNotify(false)
		e.log.Warn("admin notification failed",
			slog.Int64("chat_id", sess.ChatID),
			slog.String("state", stateKey),
			slog.Any("error", err))
		return
	}

	metrics.RecordAdminNotify(true)
}
