package analytics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
)

// Engagement is the share of dialogue turns answered with a model reply.
type Engagement struct {
	Turns     float64
	AIReplies float64
}

// Percent renders the ratio with one decimal, e.g. "12.5%".
func (e Engagement) Percent() string {
	if e.Turns <= 0 {
		return "0.0%"
	}
	ratio := e.AIReplies / e.Turns * 100
	if ratio > 100 {
		ratio = 100
	}
	return fmt.Sprintf("%.1f%%", ratio)
}

// ReadEngagement sums the dialogue counters exposed by g.
func ReadEngagement(g prometheus.Gatherer) (Engagement, error) {
	if g == nil {
		return Engagement{}, nil
	}
	families, err := g.Gather()
	if err != nil {
		return Engagement{}, fmt.Errorf("analytics: gather metrics: %w", err)
	}
	var out Engagement
	for _, family := range families {
		switch family.GetName() {
		case metrics.TurnsFamily:
			out.Turns += sumCounters(family, "", "")
		case metrics.AIFallbackFamily:
			out.AIReplies += sumCounters(family, "outcome", metrics.AIOutcomeReply)
		}
	}
	return out, nil
}

func sumCounters(family *dto.MetricFamily, label, value string) float64 {
	var total float64
	for _, m := range family.GetMetric() {
		if label != "" && !hasLabel(m, label, value) {
			continue
		}
		total += m.GetCounter().GetValue()
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue() == value
		}
	}
	return false
}
