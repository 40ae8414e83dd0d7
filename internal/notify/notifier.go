package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hnwatch/internal/config"
	"hnwatch/internal/state"
	"hnwatch/internal/story"
)

var (
	metricNotified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hnwatch_notified_total",
		Help: "Stories taken off the pending queue and dispatched",
	})

	metricSinkCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hnwatch_sink_calls_total",
		Help: "Sink invocations, by sink and outcome",
	}, []string{"sink", "status"})
)

// Sink receives every story the Notifier takes off the queue.
type Sink interface {
	Name() string
	Notify(ctx context.Context, s story.Story) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	Label string
	Fn    func(ctx context.Context, s story.Story) error
}

func (f SinkFunc) Name() string { return f.Label }

func (f SinkFunc) Notify(ctx context.Context, s story.Story) error { return f.Fn(ctx, s) }

// Notifier delivers pending stories to the registered sinks.
type Notifier struct {
	ledger *state.Ledger
	cfg    *config.Manager

	mu    sync.RWMutex
	sinks []Sink
}

func NewNotifier(ledger *state.Ledger, cfg *config.Manager) *Notifier {
	return &Notifier{ledger: ledger, cfg: cfg}
}

// Register adds a sink. Sinks are called in registration order.
func (n *Notifier) Register(s Sink) {
	n.mu.Lock()
	n.sinks = append(n.sinks, s)
	n.mu.Unlock()
}

// Sinks returns the registered sinks.
func (n *Notifier) Sinks() []Sink {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Sink(nil), n.sinks...)
}

// Run delivers stories until ctx is done. It returns at once unless both
// watching and notifying are enabled.
func (n *Notifier) Run(ctx context.Context) {
	cfg := n.cfg.Get()
	if !cfg.Watch.Enabled || !cfg.Notify.Enabled {
		slog.Info("Notifier disabled", "watch", cfg.Watch.Enabled, "notify", cfg.Notify.Enabled)
		return
	}
	slog.Info("Notifier started", "sinks", len(n.Sinks()))

	for {
		s, err := n.ledger.Pop(ctx)
		if err != nil {
			return
		}
		n.ledger.MarkNotified(s.ID)
		metricNotified.Inc()
		n.Dispatch(ctx, s)
	}
}

// Dispatch hands s to every sink. A failing or panicking sink is logged and
// does not stop the others. It returns the number of sinks that failed.
func (n *Notifier) Dispatch(ctx context.Context, s story.Story) int {
	failed := 0
	for _, sink := range n.Sinks() {
		if err := call(ctx, sink, s); err != nil {
			failed++
			metricSinkCalls.WithLabelValues(sink.Name(), "error").Inc()
			slog.Error("Sink failed", "sink", sink.Name(), "id", s.ID, "error", err)
			continue
		}
		metricSinkCalls.WithLabelValues(sink.Name(), "success").Inc()
	}
	return failed
}

func call(ctx context.Context, sink Sink, s story.Story) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return sink.Notify(ctx, s)
}
