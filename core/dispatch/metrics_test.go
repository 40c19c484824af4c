package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/model"
)

func TestMetrics_EngineUpdatesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	t.Cleanup(func() { ResetMetrics(nil) })

	sender := newFakeSender()
	eng, _ := newTestEngine(t, respondersABC(), sender, time.Minute, 2)

	ticket, err := eng.CreateAndDispatch(context.Background(), directory.Criterion{Language: "fr"}, "p")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitInvite(t, sender)

	if got := metricValue(t, reg, "call_requests_active"); got != 1 {
		t.Fatalf("expected 1 active request, got %v", got)
	}
	waitMetric(t, reg, "call_invites_sent_total", 1)

	if err := eng.RespondToCall(ticket.RequestID, model.DecisionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := metricValue(t, reg, "call_requests_active"); got != 0 {
		t.Fatalf("expected 0 active requests, got %v", got)
	}
	if got := metricValue(t, reg, "call_resolution_duration_seconds"); got != 1 {
		t.Fatalf("expected 1 resolution observation, got %v", got)
	}
}

func TestMetrics_AdvanceReasons(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	t.Cleanup(func() { ResetMetrics(nil) })

	sender := newFakeSender()
	eng, _ := newTestEngine(t, respondersABC(), sender, time.Minute, 2)

	ticket, err := eng.CreateAndDispatch(context.Background(), directory.Criterion{Language: "fr"}, "p")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitInvite(t, sender)
	if err := eng.RespondToCall(ticket.RequestID, model.DecisionDecline); err != nil {
		t.Fatalf("decline: %v", err)
	}
	waitInvite(t, sender)

	if got := metricValue(t, reg, "call_advances_total"); got != 1 {
		t.Fatalf("expected 1 advance, got %v", got)
	}
}

// waitMetric polls until the named metric reaches want. The invite counter
// is incremented after delivery returns, slightly behind the sender fake.
func waitMetric(t *testing.T, reg *prometheus.Registry, name string, want float64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := metricValue(t, reg, name); got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("metric %s did not reach %v, have %v", name, want, metricValue(t, reg, name))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// metricValue sums the values of the named metric family across labels. For
// histograms it sums the sample counts.
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return total
	}
	return 0
}
