package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hnwatch/internal/story"
)

// apiClient reads a running daemon's HTTP API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(addr string) *apiClient {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &apiClient{
		baseURL: strings.TrimRight(addr, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) Stories(ctx context.Context, cat story.Category) ([]story.Story, error) {
	var out []story.Story
	if err := c.get(ctx, "/api/stories/"+cat.String(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) Item(ctx context.Context, id int) (story.Story, error) {
	var out story.Story
	if err := c.get(ctx, fmt.Sprintf("/api/items/%d", id), &out); err != nil {
		return story.Story{}, err
	}
	return out, nil
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return fmt.Errorf("daemon: %s", body.Error)
		}
		return fmt.Errorf("daemon responded with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
