package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/atsim"
	"github.com/aretw0/atsim/internal/logging"
	"github.com/aretw0/atsim/pkg/adapters/file"
	httpAdapter "github.com/aretw0/atsim/pkg/adapters/http"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/observability"
	"github.com/aretw0/atsim/pkg/persistence/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the process host, exposing the control API, live snapshot streams and Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := logging.FromConfig(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}

		models, err := file.LoadModels(cfg.ModelsDir)
		if err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		if cfg.TokensFile == "" {
			return fmt.Errorf("%w: tokens_file is required to serve", domain.ErrInvalidArgument)
		}
		tokens, err := file.LoadTokens(cfg.TokensFile)
		if err != nil {
			return fmt.Errorf("failed to load tokens: %w", err)
		}

		be, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := be.Close(); err != nil {
				logger.Error("Failed to close process store", "err", err)
			}
		}()

		metrics := observability.NewMetrics()
		store := middleware.Chain(be.store,
			middleware.NewLogging(logger),
			middleware.NewInstrumented(metrics.ObserveStore),
		)
		opts := []atsim.Option{
			atsim.WithLogger(logger),
			atsim.WithProcessStore(store),
			atsim.WithMetrics(metrics),
			atsim.WithMaxRunning(cfg.MaxRunning),
			atsim.WithStreamBuffer(cfg.StreamBuffer),
			atsim.WithScriptTimeout(cfg.ScriptTimeout),
		}
		if be.locker != nil {
			opts = append(opts, atsim.WithLocker(be.locker))
		}
		svc := atsim.New(models, opts...)

		srv := &http.Server{
			Addr: cfg.Addr,
			Handler: httpAdapter.NewHandler(svc, tokens,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithMetricsHandler(metrics.Handler()),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("Starting atsim server", "addr", srv.Addr, "models_dir", cfg.ModelsDir, "store", cfg.Store)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Start shutdown")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			// Streams are closed first so in-flight SSE requests return.
			svcErr := svc.Shutdown(shutdownCtx)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", cfg.ShutdownTimeout, "err", err)
				_ = srv.Close()
			}
			logger.Info("atsim server stopped")
			return svcErr
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().String("tokens", "", "YAML file mapping tokens to owner ids")
	serveCmd.Flags().String("store", "", "Process store: memory, redis or bolt")
	serveCmd.Flags().Int("max-running", 0, "Maximum number of concurrently running processes (0 = unlimited)")
}
