package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/types"
)

// readTimeout closes a stream that has been silent this long. Binance
// pushes kline updates every few seconds.
const readTimeout = 90 * time.Second

// Binance reads klines from the Binance spot REST API and kline websocket.
type Binance struct {
	restURL   string
	streamURL string
	symbol    string
	interval  string

	http   *http.Client
	dialer *websocket.Dialer
	log    logger.Logger
}

// NewBinance builds a client for cfg.Symbol at cfg.Interval.
func NewBinance(cfg config.FeedConfig, log logger.Logger) *Binance {
	if log == nil {
		log = logger.NewNop()
	}
	interval := cfg.Interval
	if interval == "" {
		interval = "1m"
	}
	return &Binance{
		restURL:   strings.TrimRight(cfg.RESTURL, "/"),
		streamURL: strings.TrimRight(cfg.StreamURL, "/"),
		symbol:    strings.ToUpper(cfg.Symbol),
		interval:  interval,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}).DialContext,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (b *Binance) klinesURL(limit int) string {
	q := url.Values{}
	q.Set("symbol", b.symbol)
	q.Set("interval", b.interval)
	q.Set("limit", strconv.Itoa(limit))
	return b.restURL + "/klines?" + q.Encode()
}

func (b *Binance) streamEndpoint() string {
	return fmt.Sprintf("%s/%s@kline_%s", b.streamURL, strings.ToLower(b.symbol), b.interval)
}

func (b *Binance) Snapshot(ctx context.Context, limit int) ([]types.Candle, error) {
	if limit <= 0 {
		limit = 500
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.klinesURL(limit), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("klines status %d: %s", resp.StatusCode, string(body))
	}

	// Rows are Binance-style mixed arrays; UseNumber keeps the price
	// strings exact until parsed.
	var raw [][]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	return parseKlines(raw)
}

// parseKlines converts [openTime, o, h, l, c, v, closeTime, ...] rows.
// Every bar but the last is final.
func parseKlines(raw [][]json.Number) ([]types.Candle, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no kline data")
	}
	out := make([]types.Candle, 0, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d has %d fields", i, len(row))
		}
		ms, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		var v [5]float64
		for j := range v {
			f, err := strconv.ParseFloat(row[j+1].String(), 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			v[j] = f
		}
		out = append(out, types.Candle{
			Time:    ms / 1000,
			Open:    v[0],
			High:    v[1],
			Low:     v[2],
			Close:   v[3],
			Volume:  v[4],
			IsFinal: i < len(raw)-1,
		})
	}
	return out, nil
}

// klineEvent is the websocket payload of <symbol>@kline_<interval>.
type klineEvent struct {
	Event string `json:"e"`
	K     struct {
		Start  int64  `json:"t"`
		Open   string `json:"o"`
		High   string `json:"h"`
		Low    string `json:"l"`
		Close  string `json:"c"`
		Volume string `json:"v"`
		Closed bool   `json:"x"`
	} `json:"k"`
}

func parseKline(msg []byte) (types.Candle, error) {
	var ev klineEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return types.Candle{}, fmt.Errorf("decode kline event: %w", err)
	}
	if ev.Event != "kline" {
		return types.Candle{}, fmt.Errorf("unexpected event %q", ev.Event)
	}
	fields := [...]string{ev.K.Open, ev.K.High, ev.K.Low, ev.K.Close, ev.K.Volume}
	var v [5]float64
	for i, s := range fields {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("kline field %d: %w", i, err)
		}
		v[i] = f
	}
	return types.Candle{
		Time:    ev.K.Start / 1000,
		Open:    v[0],
		High:    v[1],
		Low:     v[2],
		Close:   v[3],
		Volume:  v[4],
		IsFinal: ev.K.Closed,
	}, nil
}

func (b *Binance) Stream(ctx context.Context) (<-chan types.Candle, error) {
	endpoint := b.streamEndpoint()
	conn, _, err := b.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	b.log.Info("feed_connected", logger.String("url", endpoint))

	out := make(chan types.Candle, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					b.log.Warn("feed_stream_closed", logger.String("url", endpoint), logger.Err(err))
				}
				return
			}
			c, err := parseKline(msg)
			if err != nil {
				b.log.Debug("feed_message_skipped", logger.Err(err))
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
