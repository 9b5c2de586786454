package flow

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Provider hands out the current graph and supports atomic replacement,
// so a hot reload never tears a graph mid-update. Sessions pointing at a
// state the new graph dropped are recovered by StateOrStart at render time.
type Provider struct {
	current atomic.Pointer[Graph]
	path    string
	log     *slog.Logger
}

// NewProvider wraps an already loaded graph.
func NewProvider(g *Graph, path string, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}

	p := &Provider{path: path, log: log}
	p.current.Store(g)
	return p
}

// Get returns the graph currently in effect.
func (p *Provider) Get() *Graph {
	return p.current.Load()
}

// Replace swaps in a new graph.
func (p *Provider) Replace(g *Graph) {
	if g == nil {
		return
	}
	p.current.Store(g)
}

// Watch re-loads the flow definition whenever the file changes, keeping the
// previous graph when the new revision fails to parse or validate. Blocks
// until ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			p.log.Error("failed to close flow watcher", slog.Any("error", cerr))
		}
	}()

	// Watch the directory: editors often replace the file atomically,
	// which would orphan a watch on the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return err
	}

	target := filepath.Clean(p.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			g, err := Load(p.path)
			if err != nil {
				p.log.Error("flow reload failed, keeping previous graph",
					slog.String("path", p.path), slog.Any("error", err))
				continue
			}

			p.Replace(g)
			p.log.Info("flow definition reloaded",
				slog.String("path", p.path), slog.Int("states", len(g.States)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Error("flow watcher error", slog.Any("error", err))
		}
	}
}
