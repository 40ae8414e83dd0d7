package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnwatch/internal/config"
	"hnwatch/internal/feed"
	"hnwatch/internal/notify"
	"hnwatch/internal/state"
	"hnwatch/internal/story"
	"hnwatch/internal/watch"
)

type staticSource struct {
	items map[story.Category][]story.Item
}

func (s staticSource) ListCategory(ctx context.Context, c story.Category) ([]int, error) {
	var ids []int
	for _, it := range s.items[c] {
		ids = append(ids, it.ID)
	}
	return ids, nil
}

func (s staticSource) FetchItem(ctx context.Context, id int) (*story.Item, error) {
	for _, items := range s.items {
		for _, it := range items {
			if it.ID == id {
				cp := it
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func TestPipelineDeliversMatchExactlyOnce(t *testing.T) {
	cfg := config.Defaults()
	cfg.Watch.Enabled = true
	cfg.Watch.Patterns = "rust"
	cfg.Notify.Enabled = true
	mgr := config.Static(cfg)

	snap := state.NewSnapshot()
	ledger := state.NewLedger(cfg.Notify.Capacity)
	src := staticSource{items: map[story.Category][]story.Item{
		story.Top: {
			{ID: 1, Title: "Rust in production", URL: "https://example.com", Time: time.Now().Unix()},
			{ID: 2, Title: "Something else", Time: time.Now().Unix()},
		},
	}}

	fetcher := feed.NewFetcher(src, snap, mgr)
	watcher := watch.NewWatcher(snap, ledger, mgr)
	notifier := notify.NewNotifier(ledger, mgr)

	var mu sync.Mutex
	var calls []story.Story
	notifier.Register(notify.SinkFunc{Label: "test", Fn: func(ctx context.Context, s story.Story) error {
		mu.Lock()
		calls = append(calls, s)
		mu.Unlock()
		return nil
	}})

	fetcher.RefreshAll(context.Background())
	s, ok := snap.StoryByID(1)
	require.True(t, ok)
	assert.Equal(t, story.Top, s.Category)

	require.Equal(t, 1, watcher.Scan())
	assert.True(t, ledger.Pending(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifier.Run(ctx)

	require.Eventually(t, func() bool { return ledger.Notified(1) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)

	// Same snapshot, second tick: nothing new.
	assert.Zero(t, watcher.Scan())
	fetcher.RefreshAll(context.Background())
	assert.Zero(t, watcher.Scan())

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].ID)
}
