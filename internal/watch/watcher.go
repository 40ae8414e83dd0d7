package watch

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hnwatch/internal/config"
	"hnwatch/internal/state"
)

var (
	metricMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hnwatch_matches_total",
		Help: "Stories queued for notification, by pattern",
	}, []string{"pattern"})

	metricPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hnwatch_pending_stories",
		Help: "Stories waiting to be notified",
	})
)

// Watcher scans the snapshot for titles matching the configured patterns and
// queues new matches on the ledger.
type Watcher struct {
	snapshot *state.Snapshot
	ledger   *state.Ledger
	cfg      *config.Manager

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
	invalid  map[string]bool
}

func NewWatcher(snapshot *state.Snapshot, ledger *state.Ledger, cfg *config.Manager) *Watcher {
	return &Watcher{
		snapshot: snapshot,
		ledger:   ledger,
		cfg:      cfg,
		compiled: make(map[string]*regexp.Regexp),
		invalid:  make(map[string]bool),
	}
}

// Run scans every watch.interval until ctx is done. It returns at once when
// watching or notifying is disabled, since nothing would drain the queue.
func (w *Watcher) Run(ctx context.Context) {
	cfg := w.cfg.Get()
	if !cfg.Watch.Enabled || !cfg.Notify.Enabled {
		slog.Info("Watcher disabled", "watch", cfg.Watch.Enabled, "notify", cfg.Notify.Enabled)
		return
	}
	slog.Info("Watcher started")

	for {
		w.Scan()

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.Get().Watch.ScanInterval()):
		}
	}
}

// Scan runs one pass over the snapshot and returns how many stories it
// queued. Patterns are re-read from the config on every pass.
func (w *Watcher) Scan() int {
	patterns := w.patterns(w.cfg.Get().Watch.PatternList())
	if len(patterns) == 0 {
		return 0
	}

	stories := w.snapshot.Stories()
	queued := 0
	for _, re := range patterns {
		for _, s := range stories {
			if !re.MatchString(s.Title) {
				continue
			}
			if w.ledger.Enqueue(s) {
				queued++
				metricMatches.WithLabelValues(re.String()).Inc()
				slog.Info("Story matched", "id", s.ID, "title", s.Title, "pattern", re.String())
			}
		}
	}
	metricPending.Set(float64(w.ledger.PendingLen()))
	return queued
}

// patterns compiles sources case-insensitively, caching the result. Invalid
// expressions are logged once and skipped.
func (w *Watcher) patterns(sources []string) []*regexp.Regexp {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		if re, ok := w.compiled[src]; ok {
			out = append(out, re)
			continue
		}
		if w.invalid[src] {
			continue
		}
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			slog.Warn("Ignoring invalid pattern", "pattern", src, "error", err)
			w.invalid[src] = true
			continue
		}
		w.compiled[src] = re
		out = append(out, re)
	}
	return out
}
