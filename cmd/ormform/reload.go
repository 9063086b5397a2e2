package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadFunc builds a fresh app from the configuration in effect.
type reloadFunc func(ctx context.Context) (*app, error)

// current returns the app serving requests.
func (s *server) current() *app {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// acquire returns the serving app and marks it in use until release is
// called. A replaced app is closed only after its last release.
func (s *server) acquire() (a *app, release func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.app.inflight.Add(1)
	return s.app, s.app.inflight.Done
}

// Reload rebuilds the catalog, session and form pipeline. On failure the
// previous app keeps serving.
func (s *server) Reload(ctx context.Context) error {
	if s.reload == nil {
		return errReloadDisabled
	}
	s.logger.Info().Msg("reloading catalog")

	next, err := s.reload(ctx)
	if err != nil {
		s.metrics.CatalogReloadErrors.Inc()
		s.logger.Error().Err(err).Msg("catalog reload failed, keeping old catalog")
		return fmt.Errorf("reload catalog: %w", err)
	}

	s.mu.Lock()
	prev := s.app
	s.app = next
	s.mu.Unlock()

	go s.retire(prev)
	s.metrics.CatalogReloads.Inc()
	s.logger.Info().Int("models", len(next.catalog.Models())).Msg("catalog reloaded")
	return nil
}

// retire closes a replaced app once no request holds it. No new holders
// appear after the swap.
func (s *server) retire(prev *app) {
	prev.inflight.Wait()
	if err := prev.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close previous session")
	}
}

// watch reloads whenever the catalog file changes until ctx is done.
func (s *server) watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory; editors replace files on save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	s.logger.Info().Str("path", path).Msg("watching catalog for changes")

	go func() {
		defer watcher.Close()
		filename := filepath.Base(path)
		// Editors emit bursts of events per save.
		var debounce <-chan time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					s.logger.Debug().Str("event", event.Op.String()).Str("file", event.Name).Msg("catalog file changed")
					debounce = time.After(100 * time.Millisecond)
				}
			case <-debounce:
				debounce = nil
				_ = s.Reload(ctx)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error().Err(err).Msg("file watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
