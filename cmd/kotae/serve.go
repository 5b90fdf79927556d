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
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and the inbox watcher when configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := a.open()
			if err != nil {
				return err
			}
			defer comps.Close()
			cfg, logger := comps.Config, comps.Logger
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watchDone := make(chan struct{})
			if len(cfg.Watch.Directories) > 0 {
				w := watcher.New(cfg.Watch.Directories,
					func(ctx context.Context, path string) error {
						_, err := comps.Ingestor.IngestFile(ctx, path)
						return err
					},
					watcher.WithLogger(logger),
					watcher.WithExtensions(cfg.Watch.Extensions),
					watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
					watcher.WithDebounce(cfg.Watch.Debounce),
				)
				go func() {
					defer close(watchDone)
					if err := w.Run(ctx); err != nil {
						logger.Error("watcher stopped", zap.Error(err))
					}
				}()
			} else {
				close(watchDone)
			}

			srv := server.NewServer(server.Deps{
				Ingester:      comps.Ingestor,
				Answerer:      comps.Answerer,
				Index:         comps.VectorIndex,
				Ledger:        comps.Ledger,
				EmbedderName:  comps.Embedder.Name(),
				GeneratorName: comps.Generator.Name(),
			}, cfg, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					stop()
					<-watchDone
					return err
				}
			case <-ctx.Done():
			}

			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Warn("server shutdown failed", zap.Error(err))
			}
			<-watchDone
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
