package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"hnwatch/internal/config"
	"hnwatch/internal/story"
)

type Payload struct {
	DeliveryID string    `json:"delivery_id"`
	ID         int       `json:"id"`
	Category   string    `json:"category"`
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
	Score      int       `json:"score"`
	By         string    `json:"by"`
	Comments   int       `json:"comments"`
	PostedAt   time.Time `json:"posted_at"`
	DiscussURL string    `json:"discuss_url"`
}

// NewPayload builds the generic payload for s with a fresh delivery id.
func NewPayload(s story.Story) Payload {
	return Payload{
		DeliveryID: uuid.NewString(),
		ID:         s.ID,
		Category:   s.Category.String(),
		Title:      s.Title,
		URL:        s.URL,
		Hostname:   s.Hostname,
		Score:      s.Score,
		By:         s.By,
		Comments:   s.Descendants,
		PostedAt:   s.PostedAt,
		DiscussURL: s.DiscussURL(),
	}
}

// Link is the article URL, or the discussion for text posts.
func (p Payload) Link() string {
	if p.URL != "" {
		return p.URL
	}
	return p.DiscussURL
}

type Client struct {
	client *http.Client
}

func NewClient() *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DiscordPayload represents the structure for Discord Webhooks
type DiscordPayload struct {
	Content string `json:"content"`
}

// MisskeyPayload is the body of a Misskey notes/create call.
type MisskeyPayload struct {
	I          string `json:"i"`
	Text       string `json:"text"`
	Visibility string `json:"visibility"`
}

func (c *Client) Send(ctx context.Context, wh config.Webhook, payload Payload) error {
	var body []byte
	var err error

	switch wh.Provider {
	case "discord":
		body, err = json.Marshal(DiscordPayload{
			Content: fmt.Sprintf("**%s**\n%s\n%s", payload.Title, payload.Link(), payload.DiscussURL),
		})
	case "misskey":
		if wh.APIToken == "" {
			return fmt.Errorf("misskey webhook %q has no api_token", wh.Name)
		}
		body, err = json.Marshal(MisskeyPayload{
			I:          wh.APIToken,
			Text:       fmt.Sprintf("%s\n%s", payload.Title, payload.Link()),
			Visibility: "home",
		})
	default:
		body, err = json.Marshal(payload)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hnwatch/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with status: %d", resp.StatusCode)
	}
	return nil
}

// Sink posts every notified story to one webhook, at most one post per
// PostInterval.
type Sink struct {
	client  *Client
	hook    config.Webhook
	limiter *rate.Limiter
}

func NewSink(client *Client, hook config.Webhook) *Sink {
	limit := rate.Inf
	if hook.PostInterval > 0 {
		limit = rate.Every(hook.PostInterval)
	}
	return &Sink{
		client:  client,
		hook:    hook,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (s *Sink) Name() string {
	if s.hook.Name != "" {
		return "webhook:" + s.hook.Name
	}
	return "webhook"
}

func (s *Sink) Notify(ctx context.Context, st story.Story) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.client.Send(ctx, s.hook, NewPayload(st))
}
