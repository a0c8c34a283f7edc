package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/studyvisa-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/conversation"
	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

func TestSetupMetricsExposesDialogueCounters(t *testing.T) {
	registry, handler := setupMetrics()
	if registry == nil || handler == nil {
		t.Fatalf("expected non-nil registry and handler")
	}

	m := metrics.NewDialogueMetrics(registry)
	m.ObserveInbound("whatsapp", "received")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "studyvisa_messaging_inbound_webhook_total") {
		t.Fatalf("expected inbound counter to be exported")
	}
}

func TestBuildDocumentStorageDisabledWithoutBucket(t *testing.T) {
	storage := buildDocumentStorage(&appconfig.Config{}, nil, logging.New("error"))
	if storage.Enabled() {
		t.Fatalf("expected storage disabled without bucket")
	}
}

func TestSetupInlineWorkerDisabled(t *testing.T) {
	if worker := setupInlineWorker(context.Background(), &appconfig.Config{}, nil, nil, logging.New("error")); worker != nil {
		t.Fatalf("expected no worker without a memory queue")
	}
}

func TestSetupInlineWorkerStartsAndStops(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{WorkerCount: 1}
	stores := bootstrap.NewMemoryStores(leads.DedupeReuseCurrent)
	engine, closeFn, err := bootstrap.BuildEngine(context.Background(), cfg, bootstrap.EngineInput{
		Stores:   stores,
		Channels: bootstrap.BuildChannels(cfg, nil, logger),
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	defer closeFn()

	ctx, cancel := context.WithCancel(context.Background())
	worker := setupInlineWorker(ctx, cfg, engine, conversation.NewMemoryQueue(2), logger)
	if worker == nil {
		t.Fatalf("expected worker when a memory queue is present")
	}

	cancel()
	waitForInlineWorker(worker, logger)
}
