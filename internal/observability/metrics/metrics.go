package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for the scheduling engine.
type DialogueMetrics struct {
	turnsTotal       *prometheus.CounterVec
	phaseHandled     *prometheus.CounterVec
	externalLatency  *prometheus.HistogramVec
	externalFailures *prometheus.CounterVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthai",
			Name:      "turns_total",
			Help:      "Total dialogue turns by outcome",
		}, []string{"outcome"}),
		phaseHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthai",
			Name:      "phase_handled_total",
			Help:      "Phase handler executions by result",
		}, []string{"phase", "result"}),
		externalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthai",
			Name:      "external_call_seconds",
			Help:      "Latency of reasoning and directory calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability", "operation"}),
		externalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthai",
			Name:      "external_call_failures_total",
			Help:      "Failed reasoning and directory calls",
		}, []string{"capability", "operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.phaseHandled, m.externalLatency, m.externalFailures)
	return m
}

func (m *DialogueMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *DialogueMetrics) ObservePhase(phase, result string) {
	if m == nil {
		return
	}
	m.phaseHandled.WithLabelValues(phase, result).Inc()
}

func (m *DialogueMetrics) ObserveExternalCall(capability, operation string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.externalLatency.WithLabelValues(capability, operation).Observe(seconds)
	if failed {
		m.externalFailures.WithLabelValues(capability, operation).Inc()
	}
}

// ChannelMetrics counts messages crossing the channel adapters.
type ChannelMetrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
}

func NewChannelMetrics(reg prometheus.Registerer) *ChannelMetrics {
	m := &ChannelMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthai",
			Name:      "inbound_messages_total",
			Help:      "Inbound channel messages by status",
		}, []string{"channel", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthai",
			Name:      "outbound_messages_total",
			Help:      "Outbound channel messages by status",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal)
	return m
}

func (m *ChannelMetrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *ChannelMetrics) ObserveOutbound(channel, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(channel, status).Inc()
}
