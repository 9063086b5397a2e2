package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	serveListen  string
	serveTimeout time.Duration
	serveWatch   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog forms over HTTP",
	Long: `Serve starts an HTTP server with one form page per catalog model.

Routes:
  GET  /                     model index
  GET  /forms/{model}[/{id}] render a form for a new or existing row
  POST /forms/{model}[/{id}] validate and save, redirecting on success
  GET  /schemas/{model}      JSON schema of the form
  GET  /openapi.json         OpenAPI document of every form
  GET  /swagger/             Swagger UI over /openapi.json
  GET  /metrics              Prometheus metrics

SIGHUP reloads the catalog; --watch reloads it whenever the file changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&serveListen, "listen", "", "listen address (overrides configuration)")
	flags.DurationVar(&serveTimeout, "timeout", 30*time.Second, "request timeout")
	flags.BoolVar(&serveWatch, "watch", false, "reload the catalog when its file changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	cfg := a.cfg
	logOut := cmd.ErrOrStderr()

	srv, err := newServer(a, func(ctx context.Context) (*app, error) {
		return newApp(ctx, cfg, logOut)
	})
	if err != nil {
		a.Close()
		return err
	}
	defer func() { srv.current().Close() }()

	addr := cfg.Server.Listen
	if serveListen != "" {
		addr = serveListen
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(serveTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWatch {
		if err := srv.watch(ctx, cfg.Catalog); err != nil {
			return err
		}
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	for {
		select {
		case err := <-errCh:
			return err
		case <-hup:
			srv.logger.Info().Msg("received SIGHUP")
			_ = srv.Reload(ctx)
			continue
		case <-ctx.Done():
		}
		break
	}

	srv.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
