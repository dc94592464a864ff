package tradelog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("tradelog: store closed")

// Store persists trade-log rows and notifies listeners of inserts.
type Store interface {
	// Insert appends one row.
	Insert(ctx context.Context, r Record) error
	// QueryRecent returns rows whose entry time is at or after since,
	// newest first. limit <= 0 returns every match.
	QueryRecent(ctx context.Context, since time.Time, limit int) ([]Record, error)
	// SubscribeInserts streams rows inserted after the call. The channel
	// closes when ctx ends, cancel is called or the store closes.
	SubscribeInserts(ctx context.Context) (<-chan Record, func())
	Close() error
}

// subscriberBuffer is the per-listener backlog; a slower listener misses rows.
const subscriberBuffer = 64

// hub fans inserted rows out to subscribers without blocking the writer.
type hub struct {
	mu      sync.Mutex
	next    int
	subs    map[int]chan Record
	closed  bool
	dropped int
	// stop is closed with the hub and releases every subscriber watcher.
	stop chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Record), stop: make(chan struct{})}
}

func (h *hub) subscribe(ctx context.Context) (<-chan Record, func()) {
	h.mu.Lock()
	ch := make(chan Record, subscriberBuffer)
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
			h.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		case <-h.stop:
		}
	}()
	return ch, cancel
}

func (h *hub) publish(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- r:
		default:
			h.dropped++
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.stop)
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// MemoryStore keeps rows in process, capped to the newest max rows.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []Record
	max    int
	closed bool
	hub    *hub
	now    func() time.Time
}

// NewMemoryStore returns an empty store holding at most max rows (0 = no cap).
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{max: max, hub: newHub(), now: time.Now}
}

func (s *MemoryStore) Insert(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if r.InsertedAt.IsZero() {
		r.InsertedAt = s.now().UTC()
	}
	s.rows = append(s.rows, r)
	if s.max > 0 && len(s.rows) > s.max {
		s.rows = s.rows[len(s.rows)-s.max:]
	}
	s.mu.Unlock()

	s.hub.publish(r)
	return nil
}

func (s *MemoryStore) QueryRecent(ctx context.Context, since time.Time, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	out := make([]Record, 0, len(s.rows))
	for _, r := range s.rows {
		if !r.EntryTime.Before(since) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SubscribeInserts(ctx context.Context) (<-chan Record, func()) {
	return s.hub.subscribe(ctx)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.close()
	return nil
}

// SortNewestFirst orders rows by entry time, then insertion time, both
// descending. Rows that tie on both keep their relative order reversed.
func SortNewestFirst(rows []Record) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].EntryTime.Equal(rows[j].EntryTime) {
			return rows[i].EntryTime.After(rows[j].EntryTime)
		}
		return rows[i].InsertedAt.After(rows[j].InsertedAt)
	})
}
