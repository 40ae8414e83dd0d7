// Package hn talks to Hacker News: the Firebase JSON API and hnrss.org feeds.
package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"hnwatch/internal/story"
)

const (
	BaseURL = "https://hacker-news.firebaseio.com"
	SiteURL = "https://news.ycombinator.com"
)

var metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hn_requests_total",
	Help: "Requests made to Hacker News, by endpoint and outcome",
}, []string{"endpoint", "status"})

var listPaths = map[story.Category]string{
	story.Top:  "/v0/topstories.json",
	story.New:  "/v0/newstories.json",
	story.Ask:  "/v0/askstories.json",
	story.Jobs: "/v0/jobstories.json",
	story.Show: "/v0/showstories.json",
}

// User is a HN user profile.
type User struct {
	ID        string `json:"id"`
	Created   int64  `json:"created"`
	Karma     int    `json:"karma"`
	About     string `json:"about"`
	Submitted []int  `json:"submitted"`
}

// Client reads the Firebase API. Requests share one rate limiter.
type Client struct {
	client  *http.Client
	baseURL string
	siteURL string
	limiter *rate.Limiter
}

// NewClient returns a client for baseURL allowing ratePerSec requests per
// second. A nil httpClient gets a 10s timeout client; ratePerSec <= 0 means
// unlimited.
func NewClient(httpClient *http.Client, baseURL string, ratePerSec float64) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = BaseURL
	}
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = max(1, int(ratePerSec))
	}
	return &Client{
		client:  httpClient,
		baseURL: baseURL,
		siteURL: SiteURL,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// WithSiteURL points Ping at another site root, for tests.
func (c *Client) WithSiteURL(u string) *Client {
	c.siteURL = u
	return c
}

// ListCategory returns the current ranking of c.
func (c *Client) ListCategory(ctx context.Context, cat story.Category) ([]int, error) {
	path, ok := listPaths[cat]
	if !ok {
		return nil, fmt.Errorf("no listing for category %s", cat)
	}

	var ids []int
	found, err := c.getJSON(ctx, cat.String(), c.baseURL+path, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s stories: %w", cat, err)
	}
	if !found {
		return nil, fmt.Errorf("listing for %s not found", cat)
	}
	return ids, nil
}

// FetchItem returns item id, or nil when it is missing, deleted or dead.
func (c *Client) FetchItem(ctx context.Context, id int) (*story.Item, error) {
	var item *story.Item
	found, err := c.getJSON(ctx, "item", fmt.Sprintf("%s/v0/item/%d.json", c.baseURL, id), &item)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item %d: %w", id, err)
	}
	if !found || item == nil || item.Deleted || item.Dead {
		return nil, nil
	}
	return item, nil
}

// User returns the profile of name, or nil when there is no such user.
func (c *Client) User(ctx context.Context, name string) (*User, error) {
	var u *User
	found, err := c.getJSON(ctx, "user", fmt.Sprintf("%s/v0/user/%s.json", c.baseURL, url.PathEscape(name)), &u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	return u, nil
}

// Ping requests the HN front page and returns its HTTP status.
func (c *Client) Ping(ctx context.Context) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+"/news", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		metricRequests.WithLabelValues("ping", "error").Inc()
		return 0, fmt.Errorf("failed to reach site: %w", err)
	}
	defer resp.Body.Close()
	metricRequests.WithLabelValues("ping", "success").Inc()
	return resp.StatusCode, nil
}

// getJSON decodes url into out. found is false on 404.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) (found bool, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metricRequests.WithLabelValues(endpoint, status).Inc()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hnwatch/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("responded with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}
