package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/dkotenko/resume-insight/internal/adapters/http"
	"github.com/dkotenko/resume-insight/internal/bootstrap"
	"github.com/dkotenko/resume-insight/internal/config"
	"github.com/dkotenko/resume-insight/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup("resume-insight-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// The bus piggybacks on the poll loop: a completion event just triggers
	// an immediate poll instead of waiting out the interval.
	go func() {
		if err := app.Bus.SubscribeResumeCompleted(ctx, app.Hub.NotifyTerminal); err != nil {
			logger.Warn("completion_subscription_error", "error", err)
		}
	}()

	router := httpadapter.NewRouter(
		cfg,
		app.IngestUC,
		app.BulkUC,
		app.Repo,
		app.Hub,
		app.Exporter,
		app.HTTPMetrics.Handler(),
	).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           app.HTTPMetrics.Middleware("resume-insight-api", router),
		ReadHeaderTimeout: 10 * time.Second,
		// No read/write deadlines: progress sockets stay open for the
		// lifetime of a job.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_error", "error", err)
	}
}
