package hn

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"sync"

	"github.com/mmcdole/gofeed"

	"hnwatch/internal/story"
)

const RSSURL = "https://hnrss.org"

var rssPaths = map[story.Category]string{
	story.Top:  "/frontpage",
	story.New:  "/newest",
	story.Ask:  "/ask",
	story.Jobs: "/jobs",
	story.Show: "/show",
}

var (
	reItemID   = regexp.MustCompile(`item\?id=(\d+)`)
	rePoints   = regexp.MustCompile(`Points:\s*(\d+)`)
	reComments = regexp.MustCompile(`# Comments:\s*(\d+)`)
)

// RSSSource reads listings from hnrss.org. Feeds carry the item details,
// so FetchItem answers from the most recent listing of each category.
type RSSSource struct {
	parser  *gofeed.Parser
	baseURL string

	mu    sync.RWMutex
	items map[story.Category]map[int]story.Item
}

func NewRSSSource(baseURL string) *RSSSource {
	if baseURL == "" {
		baseURL = RSSURL
	}
	return &RSSSource{
		parser:  gofeed.NewParser(),
		baseURL: baseURL,
		items:   make(map[story.Category]map[int]story.Item),
	}
}

func (s *RSSSource) ListCategory(ctx context.Context, cat story.Category) ([]int, error) {
	path, ok := rssPaths[cat]
	if !ok {
		return nil, fmt.Errorf("no feed for category %s", cat)
	}

	feed, err := s.parser.ParseURLWithContext(s.baseURL+path, ctx)
	if err != nil {
		metricRequests.WithLabelValues("rss_"+cat.String(), "error").Inc()
		return nil, fmt.Errorf("failed to parse %s feed: %w", cat, err)
	}
	metricRequests.WithLabelValues("rss_"+cat.String(), "success").Inc()

	ids := make([]int, 0, len(feed.Items))
	items := make(map[int]story.Item, len(feed.Items))
	for _, fi := range feed.Items {
		item, ok := itemFromFeed(fi)
		if !ok {
			continue
		}
		if _, dup := items[item.ID]; dup {
			continue
		}
		ids = append(ids, item.ID)
		items[item.ID] = item
	}

	s.mu.Lock()
	s.items[cat] = items
	s.mu.Unlock()

	return ids, nil
}

// FetchItem returns the item as last seen in any listing, or nil.
func (s *RSSSource) FetchItem(ctx context.Context, id int) (*story.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cat := range story.Categories {
		if item, ok := s.items[cat][id]; ok {
			return &item, nil
		}
	}
	return nil, nil
}

func itemFromFeed(fi *gofeed.Item) (story.Item, bool) {
	id, ok := parseItemID(fi.GUID)
	if !ok {
		if id, ok = parseItemID(fi.Link); !ok {
			return story.Item{}, false
		}
	}

	item := story.Item{
		ID:    id,
		Type:  "story",
		Title: fi.Title,
		Score: matchInt(rePoints, fi.Description),
	}
	// Text posts link back to the HN item itself.
	if u, err := url.Parse(fi.Link); err == nil && u.Hostname() != "news.ycombinator.com" {
		item.URL = fi.Link
	}
	if len(fi.Authors) > 0 && fi.Authors[0] != nil {
		item.By = fi.Authors[0].Name
	}
	if fi.PublishedParsed != nil {
		item.Time = fi.PublishedParsed.Unix()
	}
	if m := reComments.FindStringSubmatch(fi.Description); m != nil {
		n, _ := strconv.Atoi(m[1])
		item.Descendants = &n
	}
	return item, true
}

func parseItemID(s string) (int, bool) {
	m := reItemID.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

func matchInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
