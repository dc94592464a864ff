package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/logger"
)

const klinesBody = `[
 [1700000000000,"100.10","101.00","99.90","100.50","12.5",1700000059999,"1256.2",10,"6","603","0"],
 [1700000060000,"100.50","100.90","100.20","100.80","8.0",1700000119999,"806.4",7,"4","403","0"]
]`

func testConfig(rest, stream string) config.FeedConfig {
	cfg := config.Default().Feed
	cfg.RESTURL = rest
	cfg.StreamURL = stream
	cfg.Symbol = "paxgusdt"
	return cfg
}

func TestSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/klines" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("symbol") != "PAXGUSDT" || q.Get("interval") != "1m" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	b := NewBinance(testConfig(srv.URL+"/", ""), logger.NewNop())
	cs, err := b.Snapshot(context.Background(), 2)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(cs))
	}
	if cs[0].Time != 1_700_000_000 || cs[0].Open != 100.10 || cs[0].Volume != 12.5 || !cs[0].IsFinal {
		t.Fatalf("first candle wrong: %+v", cs[0])
	}
	if cs[1].IsFinal {
		t.Fatal("last snapshot bar is still forming")
	}
}

func TestSnapshotHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewBinance(testConfig(srv.URL, ""), nil).Snapshot(context.Background(), 10)
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestParseKlinesRejectsShortRow(t *testing.T) {
	if _, err := parseKlines(nil); err == nil {
		t.Fatal("empty payload accepted")
	}
	raw := [][]json.Number{{"1700000000000", "1"}}
	if _, err := parseKlines(raw); err == nil {
		t.Fatal("short row accepted")
	}
}

func TestParseKline(t *testing.T) {
	msg := `{"e":"kline","E":1700000065000,"s":"PAXGUSDT","k":{"t":1700000060000,"T":1700000119999,"s":"PAXGUSDT","i":"1m","o":"100.5","c":"100.7","h":"100.9","l":"100.2","v":"3.25","x":false}}`
	c, err := parseKline([]byte(msg))
	if err != nil {
		t.Fatalf("parseKline failed: %v", err)
	}
	if c.Time != 1_700_000_060 || c.Close != 100.7 || c.High != 100.9 || c.Volume != 3.25 || c.IsFinal {
		t.Fatalf("unexpected candle %+v", c)
	}
	if _, err := parseKline([]byte(`{"e":"trade"}`)); err == nil {
		t.Fatal("non-kline event accepted")
	}
}

func TestStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/paxgusdt@kline_1m" {
			t.Errorf("unexpected stream path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msgs := []string{
			`{"e":"kline","k":{"t":1700000060000,"o":"1","h":"2","l":"0.5","c":"1.5","v":"10","x":false}}`,
			`not json`,
			`{"e":"kline","k":{"t":1700000060000,"o":"1","h":"2.5","l":"0.5","c":"2","v":"12","x":true}}`,
		}
		for _, m := range msgs {
			conn.WriteMessage(websocket.TextMessage, []byte(m))
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	b := NewBinance(testConfig("", wsURL), logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := b.Stream(ctx)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	var got []float64
	for c := range ch {
		got = append(got, c.Close)
		if len(got) == 2 && !c.IsFinal {
			t.Fatal("second update should be final")
		}
	}
	if len(got) != 2 || got[0] != 1.5 || got[1] != 2 {
		t.Fatalf("expected closes [1.5 2], got %v", got)
	}
}

func TestStreamDialError(t *testing.T) {
	b := NewBinance(testConfig("", "ws://127.0.0.1:1/ws"), nil)
	if _, err := b.Stream(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}
