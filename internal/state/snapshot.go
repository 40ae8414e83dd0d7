package state

import (
	"sync"

	"hnwatch/internal/story"
)

// partition is one category's ranking. It is never mutated after
// construction; Replace swaps in a new one.
type partition struct {
	ids     []int
	stories map[int]story.Story
}

// Snapshot holds the current stories of every category.
//
// The Fetcher is the only writer; any number of goroutines may read.
type Snapshot struct {
	mu    sync.RWMutex
	parts map[story.Category]*partition
}

func NewSnapshot() *Snapshot {
	return &Snapshot{parts: make(map[story.Category]*partition, len(story.Categories))}
}

// Replace swaps in the ranking for c. Stories previously held for c that are
// not in stories are dropped. Every story is re-tagged with c.
func (s *Snapshot) Replace(c story.Category, stories []story.Story) {
	p := &partition{
		ids:     make([]int, 0, len(stories)),
		stories: make(map[int]story.Story, len(stories)),
	}
	for _, st := range stories {
		if _, dup := p.stories[st.ID]; dup {
			continue
		}
		st.Category = c
		p.ids = append(p.ids, st.ID)
		p.stories[st.ID] = st
	}

	s.mu.Lock()
	s.parts[c] = p
	s.mu.Unlock()
}

func (s *Snapshot) partition(c story.Category) *partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parts[c]
}

// IDs returns the ranking of c.
func (s *Snapshot) IDs(c story.Category) []int {
	p := s.partition(c)
	if p == nil {
		return nil
	}
	out := make([]int, len(p.ids))
	copy(out, p.ids)
	return out
}

// StoriesIn returns the stories of c in ranking order.
func (s *Snapshot) StoriesIn(c story.Category) []story.Story {
	p := s.partition(c)
	if p == nil {
		return nil
	}
	out := make([]story.Story, 0, len(p.ids))
	for _, id := range p.ids {
		out = append(out, p.stories[id])
	}
	return out
}

// StoryByID looks id up across categories, in category display order.
func (s *Snapshot) StoryByID(id int) (story.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range story.Categories {
		if p := s.parts[c]; p != nil {
			if st, ok := p.stories[id]; ok {
				return st, true
			}
		}
	}
	return story.Story{}, false
}

// Stories returns every story currently held, once per id. A story listed in
// several categories is reported with the first category in display order.
func (s *Snapshot) Stories() []story.Story {
	s.mu.RLock()
	parts := make([]*partition, 0, len(s.parts))
	for _, c := range story.Categories {
		if p := s.parts[c]; p != nil {
			parts = append(parts, p)
		}
	}
	s.mu.RUnlock()

	seen := make(map[int]struct{})
	var out []story.Story
	for _, p := range parts {
		for _, id := range p.ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, p.stories[id])
		}
	}
	return out
}

// Len is the number of (category, story) entries held.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.parts {
		n += len(p.ids)
	}
	return n
}
