package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"graphboot/internal/config"
	"graphboot/internal/di"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Log when configuration files change")
	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, loader, reload, err := flags.load()
	if err != nil {
		return err
	}

	container, err := di.InitializeContainer(di.Options{Config: cfg})
	if err != nil {
		return err
	}
	logger := container.Logger

	if container.Router == nil {
		_ = container.Shutdown(context.Background())
		return errors.New("web serving context is disabled; nothing to serve")
	}

	if watch {
		watcher, err := config.NewWatcher(cfg, loader.Files(), reload, logger)
		if err != nil {
			_ = container.Shutdown(context.Background())
			return err
		}
		defer watcher.Stop()
		// Components are built once; changes only take effect on restart.
		watcher.OnChange(func(next *config.Config) {
			logger.Warn("Configuration changed, restart to apply",
				zap.Strings("sources", next.LoadedFrom),
			)
		})
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      container.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", string(cfg.Environment)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")

	if err := container.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
