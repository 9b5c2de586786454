// Package journal archives completed-order snapshots in Postgres.
// Recording is best-effort: the conversation never waits on or learns
// about journal failures.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Journal appends order snapshots.
type Journal interface {
	Record(ctx context.Context, chatID int64, stateKey string, data map[string]any) error
}

// Postgres writes snapshots into the order_journal table.
type Postgres struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB, log *slog.Logger) *Postgres {
	if log == nil {
		log = slog.Default()
	}

	return &Postgres{db: db, log: log}
}

// Record inserts one snapshot row. The data document is stored as JSONB.
func (p *Postgres) Record(ctx context.Context, chatID int64, stateKey string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("serialize order data: %w", err)
	}

	const query = `INSERT INTO order_journal (chat_id, state, data, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := p.db.ExecContext(ctx, query, chatID, stateKey, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert journal row: %w", err)
	}

	return nil
}

// HealthCheck pings the underlying database.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
