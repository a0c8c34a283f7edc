package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/studyvisa-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/studyvisa-ai-platform/internal/analytics"
	"github.com/wolfman30/studyvisa-ai-platform/internal/api/router"
	"github.com/wolfman30/studyvisa-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/studyvisa-ai-platform/internal/appointments"
	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/conversation"
	"github.com/wolfman30/studyvisa-ai-platform/internal/database"
	"github.com/wolfman30/studyvisa-ai-platform/internal/dialogue"
	"github.com/wolfman30/studyvisa-ai-platform/internal/documents"
	"github.com/wolfman30/studyvisa-ai-platform/internal/inbound"
	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting studyvisa-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"turn_dispatch", cfg.TurnDispatch,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	awsCfg, err := mainconfig.OptionalAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry, metricsHandler := setupMetrics()
	dialogueMetrics := metrics.NewDialogueMetrics(registry)
	chans := bootstrap.BuildChannels(cfg, dialogueMetrics, logger)

	engine, closeAI, err := bootstrap.BuildEngine(ctx, cfg, bootstrap.EngineInput{
		Stores:   stores,
		Channels: chans,
		AWS:      awsCfg,
		Redis:    redisClient,
		Metrics:  dialogueMetrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build dialogue engine", "error", err)
		os.Exit(1)
	}
	defer closeAI()

	dispatcher, memoryQueue, err := bootstrap.BuildDispatcher(cfg, engine, awsCfg, logger)
	if err != nil {
		logger.Error("failed to configure turn dispatch", "error", err)
		os.Exit(1)
	}
	worker := setupInlineWorker(ctx, cfg, engine, memoryQueue, logger)

	whatsappWebhook := inbound.NewWebhookHandler(chans.WhatsApp, dispatcher, dialogueMetrics, logger)
	telegramWebhook := inbound.NewWebhookHandler(chans.Telegram, dispatcher, dialogueMetrics, logger)

	handler := router.New(&router.Config{
		Logger:              logger,
		WhatsAppWebhook:     whatsappWebhook,
		TelegramWebhook:     telegramWebhook,
		LeadsHandler:        leads.NewHandler(stores.Leads, stores.ChatLog, logger),
		AnalyticsHandler:    analytics.NewHandler(stores.Counter, stores.ChatLog, registry, logger),
		DocumentsHandler:    documents.NewHandler(stores.Documents, buildDocumentStorage(cfg, awsCfg, logger), stores.Leads, logger),
		AppointmentsHandler: appointments.NewHandler(stores.Appointments, logger),
		HealthHandler:       database.NewHealthHandler(stores.SQL, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	waitForInlineWorker(worker, logger)
	logger.Info("server stopped")
}

// setupMetrics builds a dedicated registry so analytics reads only this process's counters.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func buildDocumentStorage(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *documents.Storage {
	if awsCfg == nil || cfg.DocumentsBucket == "" {
		logger.Warn("DOCUMENTS_BUCKET not configured; document uploads disabled")
		return documents.NewStorage(nil, "", logger)
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return documents.NewStorage(client, cfg.DocumentsBucket, logger)
}

// setupInlineWorker drains the in-process queue used by memory dispatch.
func setupInlineWorker(ctx context.Context, cfg *appconfig.Config, engine *dialogue.Engine, queue *conversation.MemoryQueue, logger *logging.Logger) *conversation.Worker {
	if queue == nil {
		return nil
	}
	worker := conversation.NewWorker(engine, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
		conversation.WithReceiveWaitSeconds(1),
	)
	worker.Start(ctx)
	logger.Info("inline conversation workers started", "count", cfg.WorkerCount)
	return worker
}

func waitForInlineWorker(worker *conversation.Worker, logger *logging.Logger) {
	if worker == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("inline conversation workers stopped")
	case <-time.After(30 * time.Second):
		logger.Warn("inline conversation workers did not stop in time")
	}
}
