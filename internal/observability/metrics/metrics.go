package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metric family names read back by the analytics stats endpoint.
const (
	TurnsFamily      = "studyvisa_dialogue_turns_total"
	AIFallbackFamily = "studyvisa_dialogue_ai_fallback_total"
)

// AI fallback outcomes.
const (
	AIOutcomeReply       = "reply"
	AIOutcomeUnavailable = "unavailable"
	AIOutcomeError       = "error"
)

// DialogueMetrics exposes counters/histograms for messaging and dialogue flows.
type DialogueMetrics struct {
	turnsTotal     *prometheus.CounterVec
	aiTotal        *prometheus.CounterVec
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyvisa",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Dialogue turns handled, by channel and matched rule",
		}, []string{"channel", "rule"}),
		aiTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyvisa",
			Subsystem: "dialogue",
			Name:      "ai_fallback_total",
			Help:      "AI fallback invocations by outcome",
		}, []string{"outcome"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyvisa",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound provider webhooks",
		}, []string{"channel", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyvisa",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound provider sends",
		}, []string{"channel", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studyvisa",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.aiTotal, m.inboundTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(channel, rule string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(channel, rule).Inc()
}

func (m *DialogueMetrics) ObserveAI(outcome string) {
	if m == nil {
		return
	}
	m.aiTotal.WithLabelValues(outcome).Inc()
}

func (m *DialogueMetrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *DialogueMetrics) ObserveOutbound(channel, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *DialogueMetrics) ObserveWebhookLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(channel).Observe(seconds)
}
