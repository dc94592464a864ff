package live

import "sync"

// Publisher receives one Snapshot per evaluation cycle. Publish must not
// block the engine.
type Publisher interface {
	Publish(Snapshot)
}

// Broadcaster fans snapshots out to subscribers. Each subscriber holds
// only the newest snapshot; older unread ones are replaced.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Snapshot
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a listener. cancel closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Snapshot, 1)
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
