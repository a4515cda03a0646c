package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
)

// WorkerModule registers the background event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc         fx.Lifecycle
	Bus        events.Bus
	Dispatcher *dispatch.Dispatcher
	Registerer prometheus.Registerer `optional:"true"`
}

func RegisterWorkers(p WorkerParams) error {
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m, err := newWorkerMetrics(reg, p.Dispatcher)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ch, err := p.Bus.Subscribe(ctx)
			if err != nil {
				cancel()
				return err
			}
			go runEventWorker(ch, m)
			slog.Info("event_worker: started")
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return nil
}

// ---------------------------------------------------------------------------
// event_worker
// ---------------------------------------------------------------------------

type workerMetrics struct {
	ticketEvents *prometheus.CounterVec
}

func newWorkerMetrics(reg prometheus.Registerer, d *dispatch.Dispatcher) (*workerMetrics, error) {
	m := &workerMetrics{
		ticketEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "destek_ticket_events_total",
			Help: "Ticket change events seen on the event bus, by kind.",
		}, []string{"kind"}),
	}
	collectors := []prometheus.Collector{m.ticketEvents}
	if d != nil {
		collectors = append(collectors,
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "destek_dispatch_dropped_total",
				Help: "Best-effort tasks dropped because the queue was full.",
			}, func() float64 { return float64(d.Dropped()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "destek_dispatch_failed_total",
				Help: "Best-effort tasks that returned an error or panicked.",
			}, func() float64 { return float64(d.Failed()) }),
		)
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			if cv, ok := are.ExistingCollector.(*prometheus.CounterVec); ok && c == m.ticketEvents {
				m.ticketEvents = cv
			}
		}
	}
	return m, nil
}

func runEventWorker(ch <-chan events.TicketEvent, m *workerMetrics) {
	for ev := range ch {
		m.ticketEvents.WithLabelValues(string(ev.Kind)).Inc()
		slog.Debug("event_worker: ticket event",
			"kind", ev.Kind,
			"ticket_id", ev.TicketID,
			"status", ev.Status,
			"actor_id", ev.ActorID,
		)
	}
	slog.Info("event_worker: stopped")
}
