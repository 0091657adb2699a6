package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDialogueMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogueMetrics(reg)
	m.ObserveTurn("reply")
	m.ObserveTurn("reply")
	m.ObservePhase("AWAIT_NAME", "ok")
	m.ObserveExternalCall("directory", "list_specialties", 0.2, true)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("reply")); got != 2 {
		t.Fatalf("expected 2 turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.externalFailures.WithLabelValues("directory", "list_specialties")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestChannelMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChannelMetrics(reg)
	m.ObserveInbound("zapi", "queued")
	m.ObserveOutbound("webchat", "sent")
	if got := testutil.ToFloat64(m.inboundTotal.WithLabelValues("zapi", "queued")); got != 1 {
		t.Fatalf("expected 1 inbound, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var d *DialogueMetrics
	d.ObserveTurn("reply")
	d.ObservePhase("START", "ok")
	d.ObserveExternalCall("reasoning", "classify", 0.1, false)

	var c *ChannelMetrics
	c.ObserveInbound("zapi", "ignored")
	c.ObserveOutbound("zapi", "failed")
}
