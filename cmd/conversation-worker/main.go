package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/studyvisa-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/studyvisa-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/conversation"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TurnDispatch != appconfig.DispatchSQS {
		logger.Warn("conversation worker expects TURN_DISPATCH=sqs", "turn_dispatch", cfg.TurnDispatch)
	}

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue, err := bootstrap.BuildSQSQueue(cfg, &awsConfig)
	if err != nil {
		logger.Error("failed to configure turn queue", "error", err)
		os.Exit(1)
	}

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()
	if !stores.Persistent() {
		logger.Warn("worker running on in-memory stores; the dashboard will not see its writes")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	dialogueMetrics := metrics.NewDialogueMetrics(prometheus.DefaultRegisterer)
	engine, closeAI, err := bootstrap.BuildEngine(ctx, cfg, bootstrap.EngineInput{
		Stores:   stores,
		Channels: bootstrap.BuildChannels(cfg, dialogueMetrics, logger),
		AWS:      &awsConfig,
		Redis:    redisClient,
		Metrics:  dialogueMetrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build dialogue engine", "error", err)
		os.Exit(1)
	}
	defer closeAI()

	worker := conversation.NewWorker(
		engine,
		queue,
		logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
	)
	worker.Start(ctx)
	logger.Info("conversation worker started", "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
}
