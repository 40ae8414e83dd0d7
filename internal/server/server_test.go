package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnwatch/internal/state"
	"hnwatch/internal/story"
)

func newTestServer(t *testing.T) (*httptest.Server, *state.Snapshot, *state.Ledger) {
	t.Helper()
	snap := state.NewSnapshot()
	ledger := state.NewLedger(10)
	srv := httptest.NewServer(New(snap, ledger, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, snap, ledger
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStoriesEndpoint(t *testing.T) {
	srv, snap, _ := newTestServer(t)
	snap.Replace(story.Ask, []story.Story{
		{ID: 3, Title: "Ask HN: first"},
		{ID: 1, Title: "Ask HN: second"},
	})

	var got []story.Story
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/stories/ask", &got))
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, story.Ask, got[1].Category)

	var empty []story.Story
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/stories/jobs", &empty))
	assert.Empty(t, empty)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/stories/best", nil))
}

func TestItemEndpoint(t *testing.T) {
	srv, snap, _ := newTestServer(t)
	snap.Replace(story.Top, []story.Story{{ID: 42, Title: "Answer"}})

	var got story.Story
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/items/42", &got))
	assert.Equal(t, "Answer", got.Title)
	assert.Equal(t, story.Top, got.Category)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/items/7", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/items/abc", nil))
}

func TestLedgerEndpoint(t *testing.T) {
	srv, _, ledger := newTestServer(t)
	ledger.Enqueue(story.Story{ID: 1})
	ledger.Enqueue(story.Story{ID: 2})
	ledger.MarkNotified(1)

	var got LedgerStatus
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/ledger", &got))
	assert.Equal(t, 10, got.Capacity)
	assert.Equal(t, 1, got.Notified)
	assert.Equal(t, []int{1}, got.History)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, snap, _ := newTestServer(t)
	snap.Replace(story.New, []story.Story{{ID: 5}})

	var health map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["stories"])

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := New(state.NewSnapshot(), state.NewLedger(0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
