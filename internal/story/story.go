package story

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"hnwatch/internal/reltime"
)

// Category is one of the fixed HN story listings.
type Category uint8

const (
	Top Category = iota
	New
	Ask
	Jobs
	Show
)

// Categories lists every category in display order.
var Categories = []Category{Top, New, Ask, Jobs, Show}

var categoryNames = [...]string{
	Top:  "top",
	New:  "new",
	Ask:  "ask",
	Jobs: "jobs",
	Show: "show",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return int(c) < len(categoryNames)
}

// ParseCategory maps a listing name ("top", "new", ...) to its Category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Story is a normalized HN item as held in the snapshot.
type Story struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Hostname    string    `json:"hostname,omitempty"`
	Score       int       `json:"score"`
	By          string    `json:"by"`
	PostedAt    time.Time `json:"posted_at"`
	Age         string    `json:"age"`
	Descendants int       `json:"descendants"`
	Category    Category  `json:"category"`
}

// Item is a raw record as returned by a feed source.
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Descendants *int   `json:"descendants"`
	Kids        []int  `json:"kids"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// Normalize turns a raw item into a Story tagged with c. Kids are dropped.
func Normalize(item Item, c Category, now time.Time) Story {
	posted := time.Unix(item.Time, 0)
	s := Story{
		ID:       item.ID,
		Title:    item.Title,
		URL:      item.URL,
		Hostname: Hostname(item.URL),
		Score:    item.Score,
		By:       item.By,
		PostedAt: posted,
		Age:      reltime.Since(posted, now),
		Category: c,
	}
	if item.Descendants != nil {
		s.Descendants = *item.Descendants
	}
	return s
}

// DiscussURL is the story's comment page on news.ycombinator.com.
func (s Story) DiscussURL() string {
	return fmt.Sprintf("https://news.ycombinator.com/item?id=%d", s.ID)
}

// Link is the article URL, or the discussion for Ask HN and text posts.
func (s Story) Link() string {
	if s.URL != "" {
		return s.URL
	}
	return s.DiscussURL()
}

// Hostname returns the host part of rawURL, or "" when there is none.
func Hostname(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
