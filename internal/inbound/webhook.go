// Package inbound serves the provider webhooks. Providers always get a 200 so
// they never retry; failures are logged and counted instead.
package inbound

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Webhook status tags that are not dialogue outcomes.
const (
	StatusReceived = "received"
	StatusIgnored  = "ignored"
)

const maxWebhookBody = 1 << 20

// WebhookHandler serves one provider's webhook over its channel adapter.
type WebhookHandler struct {
	adapter    channels.Adapter
	dispatcher Dispatcher
	metrics    *metrics.DialogueMetrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

func NewWebhookHandler(adapter channels.Adapter, dispatcher Dispatcher, m *metrics.DialogueMetrics, logger *logging.Logger) *WebhookHandler {
	if adapter == nil || dispatcher == nil {
		panic("inbound: adapter and dispatcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		adapter:    adapter,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.With("channel", adapter.Channel()),
		tracer:     otel.Tracer("studyvisa.internal.inbound"),
	}
}

// Receive handles POST webhook deliveries.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	channel := h.adapter.Channel()
	ctx, span := h.tracer.Start(r.Context(), "inbound.webhook", trace.WithAttributes(attribute.String("channel", channel)))
	defer span.End()

	status := StatusReceived
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("webhook handler panicked", "panic", fmt.Sprint(rec))
			status = StatusReceived
		}
		span.SetAttributes(attribute.String("status", status))
		h.metrics.ObserveInbound(channel, status)
		h.metrics.ObserveWebhookLatency(channel, time.Since(start).Seconds())
		respond.JSON(w, http.StatusOK, map[string]string{"status": status})
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		return
	}

	inboundEvents, err := h.adapter.Normalize(body, r.Header)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, channels.ErrInvalidSignature) {
			h.logger.Warn("webhook signature rejected")
			status = StatusIgnored
			return
		}
		h.logger.Error("error processing webhook", "error", err)
		return
	}

	for _, evt := range inboundEvents {
		tag, err := h.dispatcher.Dispatch(ctx, evt)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("error processing webhook", "error", err, "identity", evt.Identity)
			status = StatusReceived
			continue
		}
		status = tag
	}
}

// Verify answers the provider subscription handshake (hub.mode, hub.verify_token,
// hub.challenge). Adapters without a Verifier reject every attempt.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verifier, ok := h.adapter.(channels.Verifier)
	if !ok || !verifier.VerifySubscription(q.Get("hub.mode"), q.Get("hub.verify_token")) {
		h.logger.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
		http.Error(w, "Verification failed", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, q.Get("hub.challenge"))
}
