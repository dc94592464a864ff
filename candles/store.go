// Package candles keeps the ordered 1-minute bar history every other
// component reads.
package candles

import (
	"sort"
	"sync"

	"github.com/evdnx/gosig/types"
)

// UpsertResult says what Upsert did with a bar.
type UpsertResult int

const (
	Appended UpsertResult = iota
	Replaced
	Ignored
)

func (r UpsertResult) String() string {
	switch r {
	case Appended:
		return "appended"
	case Replaced:
		return "replaced"
	default:
		return "ignored"
	}
}

// Store is a capped, time-ordered candle sequence. Only the last bar may
// change, and only while it is still forming.
type Store struct {
	mu   sync.RWMutex
	max  int
	bars []types.Candle
}

// NewStore returns a store that keeps at most max bars (0 = unbounded).
func NewStore(max int) *Store {
	return &Store{max: max}
}

// Seed replaces the whole history, e.g. with a fresh REST snapshot. Bars
// are sorted by time and duplicates keep the later entry. Invalid bars are
// dropped. Every bar but the last is marked final.
func (s *Store) Seed(cs []types.Candle) {
	bars := make([]types.Candle, 0, len(cs))
	for _, c := range cs {
		if c.Valid() {
			bars = append(bars, c)
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })

	out := bars[:0]
	for _, c := range bars {
		if n := len(out); n > 0 && out[n-1].Time == c.Time {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	for i := 0; i < len(out)-1; i++ {
		out[i].IsFinal = true
	}

	s.mu.Lock()
	s.bars = out
	s.trim()
	s.mu.Unlock()
}

// Upsert applies one streamed bar: the same open time replaces a forming
// last bar, a newer time appends (closing the previous bar), anything older
// or a repeat of a finalized bar is ignored. So is a bar that fails
// Candle.Valid.
func (s *Store) Upsert(c types.Candle) UpsertResult {
	if !c.Valid() {
		return Ignored
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.bars)
	if n == 0 {
		s.bars = append(s.bars, c)
		return Appended
	}
	last := &s.bars[n-1]
	switch {
	case c.Time == last.Time:
		if last.IsFinal {
			return Ignored
		}
		*last = c
		return Replaced
	case c.Time > last.Time:
		last.IsFinal = true
		s.bars = append(s.bars, c)
		s.trim()
		return Appended
	default:
		return Ignored
	}
}

// History returns a copy of every stored bar, the forming one included.
func (s *Store) History() []types.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Candle, len(s.bars))
	copy(out, s.bars)
	return out
}

// Closed returns a copy of the finalized bars only.
func (s *Store) Closed() []types.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.bars)
	if n > 0 && !s.bars[n-1].IsFinal {
		n--
	}
	out := make([]types.Candle, n)
	copy(out, s.bars[:n])
	return out
}

// Last returns the newest bar.
func (s *Store) Last() (types.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.bars) == 0 {
		return types.Candle{}, false
	}
	return s.bars[len(s.bars)-1], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bars)
}

// trim drops the oldest bars beyond the cap. Callers hold the lock.
func (s *Store) trim() {
	if s.max > 0 && len(s.bars) > s.max {
		s.bars = append([]types.Candle(nil), s.bars[len(s.bars)-s.max:]...)
	}
}
