package state

import (
	"context"
	"sync"

	"hnwatch/internal/story"
)

const DefaultLedgerCapacity = 1000

// Ledger tracks which stories have been notified and which are waiting to be.
//
// History is a bounded FIFO: once capacity is reached the oldest id is
// forgotten. A forgotten id that is still in the snapshot may match again.
//
// An id is pending from Enqueue until MarkNotified, including the window
// between Pop and MarkNotified, so it cannot be queued twice. The queue holds
// at most capacity stories; past that the oldest queued story is dropped.
type Ledger struct {
	mu sync.Mutex

	capacity int
	history  []int // oldest first
	notified map[int]struct{}

	queue   []story.Story
	pending map[int]struct{}

	// signal has room for one token; Enqueue drops it in so Pop can sleep.
	signal chan struct{}
}

// NewLedger returns a ledger remembering up to capacity notified ids and
// queueing up to capacity pending stories.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &Ledger{
		capacity: capacity,
		history:  make([]int, 0, capacity),
		notified: make(map[int]struct{}, capacity),
		pending:  make(map[int]struct{}),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue queues s unless its id is already notified or pending. A full
// queue drops its oldest story, which may match and be queued again later.
func (l *Ledger) Enqueue(s story.Story) bool {
	l.mu.Lock()
	if _, ok := l.notified[s.ID]; ok {
		l.mu.Unlock()
		return false
	}
	if _, ok := l.pending[s.ID]; ok {
		l.mu.Unlock()
		return false
	}
	if len(l.queue) >= l.capacity {
		delete(l.pending, l.queue[0].ID)
		l.queue[0] = story.Story{}
		l.queue = l.queue[1:]
	}
	l.pending[s.ID] = struct{}{}
	l.queue = append(l.queue, s)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Pop blocks until a story is queued or ctx is done. Stories come out in
// enqueue order. The caller must follow up with MarkNotified.
func (l *Ledger) Pop(ctx context.Context) (story.Story, error) {
	for {
		l.mu.Lock()
		if len(l.queue) > 0 {
			s := l.queue[0]
			l.queue[0] = story.Story{}
			l.queue = l.queue[1:]
			more := len(l.queue) > 0
			l.mu.Unlock()
			if more {
				select {
				case l.signal <- struct{}{}:
				default:
				}
			}
			return s, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return story.Story{}, ctx.Err()
		case <-l.signal:
		}
	}
}

// MarkNotified records id in the history and releases its pending claim.
// Marking an id that is already in the history does nothing more.
func (l *Ledger) MarkNotified(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.pending, id)
	if _, ok := l.notified[id]; ok {
		return
	}
	if len(l.history) >= l.capacity {
		oldest := l.history[0]
		delete(l.notified, oldest)
		// Shift rather than reslice so the backing array does not creep.
		copy(l.history, l.history[1:])
		l.history = l.history[:len(l.history)-1]
	}
	l.history = append(l.history, id)
	l.notified[id] = struct{}{}
}

func (l *Ledger) Notified(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.notified[id]
	return ok
}

func (l *Ledger) Pending(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[id]
	return ok
}

// PendingLen is the number of stories waiting in the queue.
func (l *Ledger) PendingLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Ledger) NotifiedLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

func (l *Ledger) Capacity() int {
	return l.capacity
}

// History returns the notified ids, oldest first.
func (l *Ledger) History() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, len(l.history))
	copy(out, l.history)
	return out
}
