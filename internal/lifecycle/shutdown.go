// Package lifecycle tears the process down in order. Hooks are registered
// as subsystems come up and executed last-in-first-out on exit, so the bot
// stops consuming updates before the stores underneath it close.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hook is a named teardown step.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Shutdown accumulates teardown hooks during startup and runs them on exit.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs an empty coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register appends a teardown hook. Hooks run in reverse registration order.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Execute runs every hook sequentially, newest first. A failing hook is
// logged and does not stop the rest; the joined errors come back to the
// caller. ctx bounds the whole sequence.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	s.log.Info("shutting down", slog.Int("hooks", len(hooks)))
	start := time.Now()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown deadline hit before %s: %w", h.Name, err))
			break
		}

		hookStart := time.Now()
		if err := h.Fn(ctx); err != nil {
			s.log.Error("shutdown hook failed",
				slog.String("hook", h.Name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
			continue
		}

		s.log.Debug("shutdown hook done",
			slog.String("hook", h.Name),
			slog.Duration("took", time.Since(hookStart)))
	}

	s.log.Info("shutdown complete", slog.Duration("elapsed", time.Since(start)))
	return errors.Join(errs...)
}
