package tradelog

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/types"
)

func rec(id string, entry time.Time, status types.Status) Record {
	return Record{ID: id, Type: TypeLimitBuy, Status: status, EntryPrice: 100, EntryTime: entry}
}

func TestOpenClosedExpiredRecords(t *testing.T) {
	o := types.Order{ID: "abc", Side: types.Buy, Entry: 100.123456, Stop: 99.5, Target: 101.37, Size: 1.5, CreatedTime: 1_700_000_000}
	open := OpenRecord(o)
	if open.Status != types.StatusOpen || open.ExitPrice != nil || open.ExitTime != nil {
		t.Fatalf("open record malformed: %+v", open)
	}
	if open.EntryPrice != 100.1235 {
		t.Fatalf("entry should round to 4 dp, got %v", open.EntryPrice)
	}
	if open.RiskRewardRatio != 2 {
		t.Fatalf("risk reward: %v", open.RiskRewardRatio)
	}
	if !open.EntryTime.Equal(time.Unix(o.CreatedTime, 0)) || open.Closed() {
		t.Fatalf("open record wrong: %+v", open)
	}

	tr := types.TradeFromOrder(o, o.CreatedTime+60)
	tr.Status = types.StatusWin
	tr.ExitPrice = 101.5
	tr.ExitTimestamp = o.CreatedTime + 300
	tr.RawPnL = 2.07
	tr.Profit = 2.0
	tr.Costs = 0.07
	closed := ClosedRecord(tr)
	if !closed.Closed() || *closed.ExitPrice != 101.5 || closed.NetPnL != 2 {
		t.Fatalf("closed record wrong: %+v", closed)
	}
	if !closed.EntryTime.Equal(open.EntryTime) {
		t.Fatalf("terminal row should carry the signal time %v, got %v", open.EntryTime, closed.EntryTime)
	}
	back := closed.Trade()
	if back.ExitTimestamp != tr.ExitTimestamp || back.Profit != 2 || back.Status != types.StatusWin {
		t.Fatalf("round trip lost data: %+v", back)
	}

	exp := ExpiredRecord(o, o.CreatedTime+3660)
	if exp.Status != types.StatusExpired || exp.ExitTime == nil || exp.Closed() {
		t.Fatalf("expired record wrong: %+v", exp)
	}
}

func TestLifecycleRowsShareWindow(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	o := types.Order{ID: "t1", Side: types.Buy, Entry: 100, Stop: 99, Target: 102, Size: 1, CreatedTime: 1_700_000_000}
	tr := types.TradeFromOrder(o, o.CreatedTime+120)
	tr.Status = types.StatusWin
	tr.ExitPrice = 102
	tr.ExitTimestamp = o.CreatedTime + 600
	s.Insert(ctx, OpenRecord(o))
	s.Insert(ctx, ClosedRecord(tr))

	// A window starting between signal and fill must return both rows or neither.
	for _, since := range []int64{o.CreatedTime, o.CreatedTime + 60} {
		rows, err := s.QueryRecent(ctx, time.Unix(since, 0), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 && len(rows) != 2 {
			t.Fatalf("since %d split the trade: %d rows", since, len(rows))
		}
	}
	rows, _ := s.QueryRecent(ctx, time.Unix(o.CreatedTime, 0), 0)
	if len(rows) != 2 {
		t.Fatalf("expected both rows, got %d", len(rows))
	}
}

func TestMemoryStoreQueryRecent(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		if err := s.Insert(ctx, rec(id, base.Add(time.Duration(i)*time.Hour), types.StatusOpen)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.QueryRecent(ctx, base.Add(time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "d" || got[2].ID != "b" {
		t.Fatalf("expected d,c,b newest first, got %+v", ids(got))
	}
	got, _ = s.QueryRecent(ctx, base, 2)
	if len(got) != 2 || got[0].ID != "d" || got[1].ID != "c" {
		t.Fatalf("limit not applied: %v", ids(got))
	}
}

func TestMemoryStoreSameEntryTimeNewestInsertFirst(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	open := rec("t", at, types.StatusOpen)
	open.InsertedAt = at
	win := rec("t", at, types.StatusWin)
	win.InsertedAt = at.Add(time.Minute)
	s.Insert(ctx, open)
	s.Insert(ctx, win)
	got, _ := s.QueryRecent(ctx, at, 0)
	if got[0].Status != types.StatusWin {
		t.Fatalf("terminal row should come first, got %v", got[0].Status)
	}
}

func TestMemoryStoreCap(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Insert(ctx, rec(string(rune('a'+i)), base.Add(time.Duration(i)*time.Second), types.StatusOpen))
	}
	got, _ := s.QueryRecent(ctx, time.Time{}, 0)
	if len(got) != 2 || got[0].ID != "e" || got[1].ID != "d" {
		t.Fatalf("cap should keep newest rows, got %v", ids(got))
	}
}

func TestMemoryStoreSubscribeInserts(t *testing.T) {
	s := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe := s.SubscribeInserts(ctx)
	if err := s.Insert(context.Background(), rec("x", time.Now(), types.StatusOpen)); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-ch:
		if r.ID != "x" || r.InsertedAt.IsZero() {
			t.Fatalf("unexpected notification %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("no insert notification")
	}

	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatal("channel should close after unsubscribe")
	}
	unsubscribe() // idempotent
}

func TestMemoryStoreSubscriptionEndsWithContext(t *testing.T) {
	s := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := s.SubscribeInserts(ctx)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription did not end with its context")
	}
}

func TestMemoryStoreClose(t *testing.T) {
	s := NewMemoryStore(0)
	ch, _ := s.SubscribeInserts(context.Background())
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("close should end subscriptions")
	}
	if err := s.Insert(context.Background(), rec("y", time.Now(), types.StatusOpen)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.QueryRecent(context.Background(), time.Time{}, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	late, _ := s.SubscribeInserts(context.Background())
	if _, ok := <-late; ok {
		t.Fatal("subscribing to a closed store yields a closed channel")
	}
}

func TestCloseReleasesSubscriberWatchers(t *testing.T) {
	s := NewMemoryStore(0)
	before := runtime.NumGoroutine()
	cancels := make([]func(), 0, 50)
	for i := 0; i < 50; i++ {
		_, cancel := s.SubscribeInserts(context.Background())
		cancels = append(cancels, cancel)
	}
	if runtime.NumGoroutine() < before+50 {
		t.Fatalf("expected a watcher per subscriber")
	}
	s.Close()

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before+5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > before+5 {
		t.Fatalf("watchers still running after Close: %d goroutines, started with %d", n, before)
	}
	for _, cancel := range cancels {
		cancel()
	}
}

// flakyStore fails the first n inserts.
type flakyStore struct {
	*MemoryStore
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakyStore) Insert(ctx context.Context, r Record) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.fails
	f.mu.Unlock()
	if fail {
		return errors.New("connection refused")
	}
	return f.MemoryStore.Insert(ctx, r)
}

func TestAsyncWriterRetriesThenSucceeds(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(0), fails: 2}
	w := NewAsyncWriter(store, logger.NewNop(), 8, 3, time.Millisecond)
	w.Start(context.Background())
	if !w.Write(rec("r1", time.Now(), types.StatusOpen)) {
		t.Fatal("write should be accepted")
	}
	w.Close()

	got, _ := store.QueryRecent(context.Background(), time.Time{}, 0)
	if len(got) != 1 || store.calls != 3 {
		t.Fatalf("expected 1 row after 3 attempts, got %d rows / %d calls", len(got), store.calls)
	}
}

func TestAsyncWriterGivesUp(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(0), fails: 100}
	w := NewAsyncWriter(store, logger.NewNop(), 8, 1, time.Millisecond)
	w.Start(context.Background())
	w.Write(rec("r1", time.Now(), types.StatusOpen))
	w.Write(rec("r2", time.Now(), types.StatusOpen))
	w.Close()
	if store.calls != 4 {
		t.Fatalf("expected 2 attempts per row, got %d calls", store.calls)
	}
	if w.Write(rec("r3", time.Now(), types.StatusOpen)) {
		t.Fatal("closed writer must reject rows")
	}
}

func TestAsyncWriterNeverBlocks(t *testing.T) {
	store := NewMemoryStore(0)
	w := NewAsyncWriter(store, logger.NewNop(), 1, 0, 0)
	// Not started: the queue fills after one row.
	if !w.Write(rec("a", time.Now(), types.StatusOpen)) {
		t.Fatal("first row should fit")
	}
	if w.Write(rec("b", time.Now(), types.StatusOpen)) {
		t.Fatal("full queue should drop the row")
	}
	w.Start(context.Background())
	w.Close()
	got, _ := store.QueryRecent(context.Background(), time.Time{}, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
}

func TestClickHouseSQL(t *testing.T) {
	if _, err := qualifiedTable("gosig", "trades; DROP"); err == nil {
		t.Fatal("invalid table name accepted")
	}
	table, err := qualifiedTable("gosig", "trades")
	if err != nil || table != "gosig.trades" {
		t.Fatalf("got %q %v", table, err)
	}
	if !strings.Contains(createTableSQL(table), "CREATE TABLE IF NOT EXISTS gosig.trades") {
		t.Fatal("create statement missing table")
	}
	q := selectRecentSQL(table, 50)
	if !strings.Contains(q, "ORDER BY entry_time DESC") || !strings.Contains(q, "LIMIT 50") {
		t.Fatalf("unexpected query: %s", q)
	}
	if strings.Contains(selectRecentSQL(table, 0), "LIMIT") {
		t.Fatal("limit 0 means unbounded")
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: config.StoreMemory}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"}, nil); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func ids(rs []Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
