package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"hnwatch/internal/config"
	"hnwatch/internal/state"
	"hnwatch/internal/story"
)

var (
	metricRefreshCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hnwatch_refresh_count_total",
		Help: "The total number of category refreshes",
	}, []string{"category", "status"})

	metricItemErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hnwatch_item_fetch_errors_total",
		Help: "The total number of items skipped because they could not be fetched",
	}, []string{"category"})

	metricSnapshotSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hnwatch_snapshot_stories",
		Help: "Stories currently held per category",
	}, []string{"category"})
)

// Source is the remote feed.
type Source interface {
	// ListCategory returns the current ranking of a category.
	ListCategory(ctx context.Context, c story.Category) ([]int, error)
	// FetchItem returns an item, or nil when it no longer exists.
	FetchItem(ctx context.Context, id int) (*story.Item, error)
}

// Fetcher keeps the snapshot in line with the remote feed.
type Fetcher struct {
	source   Source
	snapshot *state.Snapshot
	cfg      *config.Manager
	now      func() time.Time
}

func NewFetcher(source Source, snapshot *state.Snapshot, cfg *config.Manager) *Fetcher {
	return &Fetcher{
		source:   source,
		snapshot: snapshot,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Refresh replaces the snapshot of c with the current ranking. If the listing
// cannot be fetched the previous snapshot of c is left in place. Items that
// fail are left out of this refresh.
func (f *Fetcher) Refresh(ctx context.Context, c story.Category) {
	settings := f.cfg.Get().Settings
	logger := slog.With("category", c.String())
	logger.Debug("Refreshing category")

	ids, err := f.source.ListCategory(ctx, c)
	if err != nil {
		logger.Error("Failed to list category", "error", err)
		metricRefreshCount.WithLabelValues(c.String(), "error").Inc()
		return
	}
	if len(ids) > settings.Limit {
		ids = ids[:settings.Limit]
	}

	now := f.now()
	results := make([]*story.Story, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(settings.Concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := f.source.FetchItem(gctx, id)
			if err != nil {
				logger.Warn("Failed to fetch item", "id", id, "error", err)
				metricItemErrors.WithLabelValues(c.String()).Inc()
				return nil
			}
			if item == nil {
				logger.Debug("Item is gone", "id", id)
				return nil
			}
			s := story.Normalize(*item, c, now)
			results[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	// Cancelled mid-way: keep the previous snapshot rather than a partial one.
	if ctx.Err() != nil {
		logger.Debug("Refresh cancelled", "error", ctx.Err())
		return
	}

	stories := make([]story.Story, 0, len(results))
	for _, s := range results {
		if s != nil {
			stories = append(stories, *s)
		}
	}
	f.snapshot.Replace(c, stories)

	metricRefreshCount.WithLabelValues(c.String(), "success").Inc()
	metricSnapshotSize.WithLabelValues(c.String()).Set(float64(len(stories)))
	logger.Info("Refreshed category", "listed", len(ids), "stored", len(stories))
}

// RefreshAll refreshes every category concurrently.
func (f *Fetcher) RefreshAll(ctx context.Context) {
	timeout := f.cfg.Get().Settings.RefreshTimeout()

	var wg sync.WaitGroup
	for _, c := range story.Categories {
		wg.Add(1)
		go func(c story.Category) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			f.Refresh(ctx, c)
		}(c)
	}
	wg.Wait()
}

// Run refreshes all categories, sleeps settings.interval, and repeats until
// ctx is done. The interval is re-read every tick.
func (f *Fetcher) Run(ctx context.Context) {
	for {
		f.RefreshAll(ctx)

		interval := f.cfg.Get().Settings.FetchInterval()
		slog.Debug("Fetcher sleeping", "interval", interval)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
