package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-ormform/internal/config"
	"github.com/goliatone/go-ormform/pkg/mapping"
	"github.com/goliatone/go-ormform/pkg/mapping/catalog"
	"github.com/goliatone/go-ormform/pkg/mapping/sqlsession"
	"github.com/goliatone/go-ormform/pkg/orchestrator"
)

var errNotFound = errors.New("row not found")

// app bundles what every command needs: configuration, logger, catalog,
// session and the form pipeline.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	catalog *catalog.Catalog
	session mapping.Session
	forms   *orchestrator.Orchestrator
	closers []func() error

	// inflight counts requests still using the app after a reload.
	inflight  sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// loadApp reads the configuration selected by the root flags.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadOptional(cfgFile)
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Catalog = catalogPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.RequireCatalog(); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cfg, logOut), closed: make(chan struct{})}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	a.catalog = cat

	if cfg.Database.Driver == "" {
		a.session = cat.Session()
	} else {
		db, err := sqlsession.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, sqlsession.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.session = db
		a.closers = append(a.closers, db.Close)
	}

	opts := []orchestrator.Option{
		orchestrator.WithSession(a.session),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithFormOptions(cfg.FormOptions(a.logger)...),
	}
	for model, path := range cfg.Presets {
		preset, err := orchestrator.LoadPreset(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("preset for %s: %w", model, err)
		}
		opts = append(opts, orchestrator.WithPreset(model, preset))
	}
	a.forms = orchestrator.New(opts...)

	a.logger.Debug().Str("catalog", cfg.Catalog).Int("models", len(cat.Models())).Msg("catalog loaded")
	return a, nil
}

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	if cfg.Logging.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
}

// Close releases database connections. Later calls return the first result.
func (a *app) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		for _, closeFn := range a.closers {
			errs = append(errs, closeFn())
		}
		a.closeErr = errors.Join(errs...)
		close(a.closed)
	})
	return a.closeErr
}

func (a *app) model(name string) (*catalog.Model, error) {
	model, ok := a.catalog.Model(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownModel, name)
	}
	return model, nil
}

// find returns the row of model whose identity string is id.
func (a *app) find(ctx context.Context, model *catalog.Model, id string) (any, error) {
	rows, err := a.session.All(ctx, model)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		key, err := mapping.IdentityString(row)
		if err != nil {
			return nil, err
		}
		if key == id {
			return row, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", errNotFound, model.Name(), id)
}

// object returns the row named by id, or a fresh row when id is empty.
func (a *app) object(ctx context.Context, model *catalog.Model, id string) (any, error) {
	if id == "" {
		return model.New(), nil
	}
	return a.find(ctx, model, id)
}
