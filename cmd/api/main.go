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

	"valora/internal/app"
	"valora/internal/config"
	"valora/internal/logger"
	"valora/internal/scheduler"
	"valora/internal/validator"
)

// @title           Valora API
// @version         1.0
// @description     Daily valuation pipeline: fetches closing prices and exchange rates and rolls holdings snapshots forward.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey PipelineKey
// @in header
// @name X-API-Key

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := app.OpenDatabase(appConfig)
	if err != nil {
		return err
	}
	defer func() { _ = dbManager.Close() }()

	clients, err := app.NewClients(appConfig)
	if err != nil {
		return err
	}
	svc, err := app.NewServices(dbManager.DB(), appConfig, clients)
	if err != nil {
		return err
	}

	validator.Register()
	if !appConfig.PipelineEnabled() {
		log.Warn("PIPELINE_API_KEY is not set, /api/v1 routes will answer 503")
	}
	router := app.NewRouter(svc, appConfig.PipelineAPIKey)

	var sched *scheduler.Scheduler
	if appConfig.ValuationSchedule != "" {
		sched = scheduler.New()
		if err := sched.AddJob(appConfig.ValuationSchedule, scheduler.NewValuationJob(svc.Pipeline, svc.Rates)); err != nil {
			return fmt.Errorf("invalid VALUATION_SCHEDULE %q: %w", appConfig.ValuationSchedule, err)
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Valora server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
