package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	server "poi_reconciler/internal/adapters/http_server"
	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, readiness, metrics and run lookup over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		var runs server.RunGetter
		if d.repo != nil {
			runs = app.NewQueryService(d.repo, d.cache, cfg.CacheTTL)
		}
		addr := cfg.OpsAddr
		if addr == "" {
			addr = ":9090"
		}
		shutdown := startOps(addr, d, runs)
		<-ctx.Done()
		shutdown()
		return nil
	},
}

// startOps serves the ops router in the background and returns its shutdown.
func startOps(addr string, d *deps, runs server.RunGetter) func() {
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Runs: runs, Checks: d.checks})

	httpSrv := &http.Server{Addr: addr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("ops server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}
}
