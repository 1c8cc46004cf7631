package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"animalcare-rag/internal/bootstrap"
	"animalcare-rag/internal/config"
	"animalcare-rag/internal/platform/logging"
	httptransport "animalcare-rag/internal/transport/http"
	"animalcare-rag/internal/transport/http/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored documents and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeApp(app)

		report := app.Documents.Reindex(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "indexed=%d skipped=%d failed=%d\n", report.Indexed, report.Skipped, report.Failed)
		return nil
	},
}

func setup(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := logging.Init(cfg.Log, cfg.App.Name); err != nil {
		return nil, err
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}
	return app, nil
}

func closeApp(app *bootstrap.App) {
	if err := app.Close(); err != nil {
		logger.Errorw("close resources failed", "error", err)
	}
	_ = logger.Flush()
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer closeApp(app)

	if app.Config.RAG.ReindexOnStartup {
		app.Documents.Reindex(ctx)
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		GinMode:        app.Config.App.GinMode,
		MaxUploadBytes: app.Config.RAG.MaxUploadBytes,
		Chat:           app.Conversations,
		Documents:      app.Documents,
		Health:         handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, app.HealthChecks()),
	})
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Infow("server stopped")
	return nil
}
