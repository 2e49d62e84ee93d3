package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote"
	"github.com/tripnote/tripnote/internal/metrics"
	"github.com/tripnote/tripnote/internal/version"
)

func serveCmd(g *globals) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search and record API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTP.Port = port
			}
			logger, err := g.newLogger(&cfg, true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting tripnote API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", g.env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("store_driver", cfg.Store.Driver),
				zap.Bool("enrichment", cfg.Enrichment.Enabled),
			)

			metrics.RegisterHTTPMetrics()
			metrics.RegisterSearchMetrics()
			metrics.RegisterEnrichmentMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := tripnote.NewFromConfig(ctx, &cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer client.Close()

			if err := client.Initialize(ctx); err != nil {
				return err
			}
			info := client.IndexInfo()
			logger.Info("Index built",
				zap.Uint64("generation", info.Generation),
				zap.Int("entries", info.Entries),
				zap.Strings("failed", info.Failed),
			)

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler:      client.Handler(),
				ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override http.port")
	return cmd
}
