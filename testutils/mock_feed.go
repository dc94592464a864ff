package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/evdnx/gosig/types"
)

// MockFeed implements feed.Feed with scripted sessions. Each Stream call
// plays the next session and then closes the channel, like a dropped
// connection. Once the sessions run out, Stream blocks until ctx ends.
type MockFeed struct {
	mu        sync.Mutex
	snapshots [][]types.Candle
	sessions  [][]types.Candle
	snapCalls int
	dials     int
	snapErr   error
}

// NewMockFeed returns a feed whose every Snapshot returns snapshot.
func NewMockFeed(snapshot []types.Candle, sessions ...[]types.Candle) *MockFeed {
	return &MockFeed{snapshots: [][]types.Candle{snapshot}, sessions: sessions}
}

// QueueSnapshot makes the following Snapshot call return cs. The last
// queued snapshot is repeated.
func (m *MockFeed) QueueSnapshot(cs []types.Candle) {
	m.mu.Lock()
	m.snapshots = append(m.snapshots, cs)
	m.mu.Unlock()
}

// FailSnapshots makes Snapshot return err until called again with nil.
func (m *MockFeed) FailSnapshots(err error) {
	m.mu.Lock()
	m.snapErr = err
	m.mu.Unlock()
}

func (m *MockFeed) Snapshot(ctx context.Context, limit int) ([]types.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapCalls++
	if m.snapErr != nil {
		return nil, m.snapErr
	}
	cs := m.snapshots[0]
	if len(m.snapshots) > 1 {
		m.snapshots = m.snapshots[1:]
	}
	if limit > 0 && len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	return append([]types.Candle(nil), cs...), nil
}

func (m *MockFeed) Stream(ctx context.Context) (<-chan types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.dials++
	var session []types.Candle
	last := len(m.sessions) == 0
	if !last {
		session = m.sessions[0]
		m.sessions = m.sessions[1:]
	}
	m.mu.Unlock()

	out := make(chan types.Candle)
	go func() {
		defer close(out)
		if last {
			<-ctx.Done()
			return
		}
		for _, c := range session {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SnapshotCalls is the number of Snapshot calls so far.
func (m *MockFeed) SnapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapCalls
}

// Dials is the number of Stream calls so far.
func (m *MockFeed) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// ErrMockFeed is a ready-made transport failure.
var ErrMockFeed = errors.New("mock feed: unavailable")
