package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnwatch/internal/config"
	"hnwatch/internal/story"
)

func capture(t *testing.T, status int) (*httptest.Server, <-chan map[string]any) {
	t.Helper()
	bodies := make(chan map[string]any, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, bodies
}

var testStory = story.Story{
	ID:          42,
	Title:       "Rust in production",
	URL:         "https://example.com/rust",
	Hostname:    "example.com",
	Score:       99,
	By:          "alice",
	Descendants: 12,
	Category:    story.Top,
}

func TestSinkGenericPayload(t *testing.T) {
	server, bodies := capture(t, http.StatusNoContent)
	sink := NewSink(NewClient(), config.Webhook{Name: "ops", URL: server.URL, Provider: "generic"})

	require.NoError(t, sink.Notify(context.Background(), testStory))
	body := <-bodies

	assert.Equal(t, "webhook:ops", sink.Name())
	assert.EqualValues(t, 42, body["id"])
	assert.Equal(t, "top", body["category"])
	assert.Equal(t, "Rust in production", body["title"])
	assert.Equal(t, "https://news.ycombinator.com/item?id=42", body["discuss_url"])
	_, err := uuid.Parse(body["delivery_id"].(string))
	assert.NoError(t, err)
}

func TestSinkDiscordPayload(t *testing.T) {
	server, bodies := capture(t, http.StatusOK)
	sink := NewSink(NewClient(), config.Webhook{URL: server.URL, Provider: "discord"})

	require.NoError(t, sink.Notify(context.Background(), testStory))
	body := <-bodies

	assert.Equal(t, "**Rust in production**\nhttps://example.com/rust\nhttps://news.ycombinator.com/item?id=42", body["content"])
}

func TestSinkMisskeyPayload(t *testing.T) {
	server, bodies := capture(t, http.StatusOK)
	sink := NewSink(NewClient(), config.Webhook{URL: server.URL, Provider: "misskey", APIToken: "secret"})

	askStory := testStory
	askStory.URL = ""
	require.NoError(t, sink.Notify(context.Background(), askStory))
	body := <-bodies

	assert.Equal(t, "secret", body["i"])
	assert.Equal(t, "Rust in production\nhttps://news.ycombinator.com/item?id=42", body["text"])
}

func TestSinkMisskeyRequiresToken(t *testing.T) {
	sink := NewSink(NewClient(), config.Webhook{Name: "mk", URL: "http://127.0.0.1:1", Provider: "misskey"})
	assert.Error(t, sink.Notify(context.Background(), testStory))
}

func TestSinkErrorStatus(t *testing.T) {
	server, _ := capture(t, http.StatusBadRequest)
	sink := NewSink(NewClient(), config.Webhook{URL: server.URL})

	assert.Error(t, sink.Notify(context.Background(), testStory))
}

func TestSinkPostInterval(t *testing.T) {
	server, bodies := capture(t, http.StatusOK)
	sink := NewSink(NewClient(), config.Webhook{URL: server.URL, PostInterval: 150 * time.Millisecond})

	start := time.Now()
	require.NoError(t, sink.Notify(context.Background(), testStory))
	require.NoError(t, sink.Notify(context.Background(), testStory))
	<-bodies
	<-bodies

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
