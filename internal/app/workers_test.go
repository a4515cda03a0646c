package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
)

func eventCount(t *testing.T, reg *prometheus.Registry, kind string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "destek_ticket_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestEventWorker_CountsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := newWorkerMetrics(reg, dispatch.New(dispatch.DefaultConfig()))
	require.NoError(t, err)

	bus := events.NewMemoryBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		runEventWorker(ch, m)
		close(done)
	}()

	for _, k := range []events.Kind{events.KindCreated, events.KindCreated, events.KindReplied} {
		require.NoError(t, bus.Publish(ctx, events.TicketEvent{Kind: k, TicketID: "t-1"}))
	}

	assert.Eventually(t, func() bool {
		return eventCount(t, reg, "created") == 2 && eventCount(t, reg, "replied") == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after the subscription ended")
	}
}

func TestNewWorkerMetrics_ReusesRegisteredCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newWorkerMetrics(reg, nil)
	require.NoError(t, err)
	second, err := newWorkerMetrics(reg, nil)
	require.NoError(t, err)

	second.ticketEvents.WithLabelValues("rated").Inc()
	assert.Same(t, first.ticketEvents, second.ticketEvents)
	assert.Equal(t, 1.0, eventCount(t, reg, "rated"))
}
