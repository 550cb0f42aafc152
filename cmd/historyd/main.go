// Command historyd serves the record version-history and conflict-resolution
// API used by collaborative record editing.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"go.uber.org/zap"

	"github.com/objectql/objectui-history/internal/config"
	"github.com/objectql/objectui-history/internal/handlers"
	"github.com/objectql/objectui-history/internal/hub"
	"github.com/objectql/objectui-history/internal/middleware"
	"github.com/objectql/objectui-history/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	if !cfg.IsProduction() {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("port", cfg.Port),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := hub.NewHub()
	go notifier.Run()

	historySvc := service.NewHistoryService(notifier, logger, cfg.MaxFields)

	historyHandler := handlers.NewHistoryHandler(historySvc)
	eventsHandler := handlers.NewEventsHandler(notifier)

	app := drift.New()
	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(driftmw.Recovery())
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Logging(logger))

	api := app.Group("/api/v1")

	records := api.Group("/records/:recordId")
	records.Get("/versions", historyHandler.ListVersions)
	records.Post("/versions", historyHandler.RecordVersion)
	records.Get("/versions/current", historyHandler.CurrentVersion)
	records.Get("/versions/compare", historyHandler.CompareVersions)
	records.Get("/versions/:versionId", historyHandler.GetVersion)
	records.Get("/versions/:versionId/state", historyHandler.GetVersionState)
	records.Post("/versions/:versionId/revert", historyHandler.Revert)

	records.Get("/conflicts", historyHandler.ListConflicts)
	records.Post("/conflicts", historyHandler.AddConflict)
	records.Post("/conflicts/resolve-all", historyHandler.ResolveAllConflicts)
	records.Post("/conflicts/:conflictId/resolve", historyHandler.ResolveConflict)

	records.Delete("/history", historyHandler.ClearHistory)

	records.Get("/events", eventsHandler.Connect)
	api.Post("/events/:clientId/subscribe/:recordId", eventsHandler.Subscribe)
	api.Post("/events/:clientId/unsubscribe/:recordId", eventsHandler.Unsubscribe)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ":"+cfg.Port))
		errCh <- app.Run(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
