package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application/services"
	"github.com/catenax-ng/exchange-gateway/internal/cache"
	"github.com/catenax-ng/exchange-gateway/internal/config"
	"github.com/catenax-ng/exchange-gateway/internal/infrastructure/edc"
	"github.com/catenax-ng/exchange-gateway/internal/infrastructure/erp"
	"github.com/catenax-ng/exchange-gateway/internal/infrastructure/persistence/postgres"
	"github.com/catenax-ng/exchange-gateway/internal/infrastructure/samm"
	"github.com/catenax-ng/exchange-gateway/internal/interfaces/rest/handlers"
	"github.com/catenax-ng/exchange-gateway/internal/interfaces/rest/middleware"
	"github.com/catenax-ng/exchange-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting exchange gateway",
		"own_bpnl", cfg.Primary.OwnBpnl,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	requestRepo := postgres.NewRequestRepository(db)
	partnerRepo := postgres.NewPartnerRepository(db)
	recordRepo := postgres.NewRecordRepository(db)

	transport := edc.NewRetryTransportClient(edc.NewTransportClient(cfg.Connector), cfg.Retry)
	backend := erp.NewBackendClient(cfg.ErpAdapter)

	negotiations := cache.NewNegotiationCache(transport, cfg.Connector.NegotiationTimeout, logger)
	credentials := cache.NewCredentialCache(transport, cfg.Connector.TransferTimeout, logger)

	scheduler, err := cache.NewRefreshScheduler(
		cfg.Scheduler.RefreshInterval,
		cfg.Scheduler.StalenessLimit,
		cfg.Scheduler.ScheduleRetention,
		logger,
	)
	if err != nil {
		logger.Error("invalid scheduler configuration", "error", err)
		os.Exit(1)
	}

	coordinator := services.NewCoordinator(
		requestRepo,
		partnerRepo,
		negotiations,
		credentials,
		scheduler,
		backend,
		transport,
		samm.NewMapper(),
		recordRepo,
		services.NewLogListener(logger),
		cfg.Coordinator,
		cfg.ErpAdapter.AnswerTimeout,
		cfg.Retry,
		logger,
	)

	h := handlers.NewHandlers(coordinator, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	coordinator.Start(workerCtx)

	sweeper := worker.NewCredentialSweeper(credentials, cfg.Worker.SweepInterval, logger)
	pruner := worker.NewSchedulePruner(scheduler, cfg.Worker.PruneInterval, logger)

	go sweeper.Start(workerCtx)
	go pruner.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting requests first; workers keep draining the queue so
	// anything admitted during the drain still reaches a terminal state.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancelWorkers()
	coordinator.Wait()

	logger.Info("server exited")
}
