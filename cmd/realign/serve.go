package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/realign/internal/cli"
	httpAdapter "github.com/aretw0/realign/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the assistant as a JSON API with Server-Sent Events for live updates.
The OpenAPI document is served at /openapi.yaml and Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		logger := loggerFor(cmd, cfg)

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.NewApp(sigCtx, cfg, logger)
		if err != nil {
			return err
		}

		handler, err := httpAdapter.NewServer(app.Assistant,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(app.Metrics.Handler()),
			httpAdapter.WithMaxInputSize(cfg.MaxInputSize),
		)
		if err != nil {
			return err
		}
		defer handler.Close()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting ReAlign Server", "addr", srv.Addr, "store", cfg.Store, "advice", cfg.AdviceBaseURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			_ = app.Close(context.Background())
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Closing event streams first lets Shutdown finish instead of waiting on them.
			handler.Close()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			if err := app.Close(ctx); err != nil {
				logger.Warn("Outstanding requests cancelled", "err", err)
			}
			logger.Info("ReAlign Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides http_addr)")
}
