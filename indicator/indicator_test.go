package indicator

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/types"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	if got := SMA(nil, 5); got != 0 {
		t.Fatalf("empty SMA should be 0, got %v", got)
	}
	if got := SMA([]float64{1, 2, 3, 4}, 2); got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
	// Fewer elements than period: mean of what exists.
	if got := SMA([]float64{2, 4}, 10); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestEMAShortSeriesIsEmpty(t *testing.T) {
	if got := EMA([]float64{1, 2, 3}, 5); len(got) != 0 {
		t.Fatalf("expected empty series, got %d samples", len(got))
	}
}

func TestEMASeedEqualsMeanOfFirstPeriod(t *testing.T) {
	series := []float64{3, 7, 11, 2, 9, 14, 5, 8}
	for period := 1; period <= len(series); period++ {
		out := EMA(series, period)
		if len(out) != len(series) {
			t.Fatalf("period %d: output length %d != input length %d", period, len(out), len(series))
		}
		for i := 0; i < period-1; i++ {
			if out[i].Valid {
				t.Fatalf("period %d: index %d should be undefined", period, i)
			}
		}
		mean := 0.0
		for _, v := range series[:period] {
			mean += v
		}
		mean /= float64(period)
		if !out[period-1].Valid || out[period-1].Value != mean {
			t.Fatalf("period %d: seed %v != mean %v", period, out[period-1], mean)
		}
	}
}

func TestEMARecursion(t *testing.T) {
	series := []float64{10, 10, 10, 20}
	out := EMA(series, 3)
	k := 2.0 / 4.0
	want := 20*k + 10*(1-k)
	if got := out[3].Value; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRSIBoundsAndExtremes(t *testing.T) {
	if got := RSI(ramp(5, 100, 1), 14); got != 50 {
		t.Fatalf("insufficient data should give 50, got %v", got)
	}
	if got := RSI(ramp(30, 100, 1), 14); got != 100 {
		t.Fatalf("rising series should give 100, got %v", got)
	}
	if got := RSI(ramp(30, 200, -1), 14); got != 0 {
		t.Fatalf("falling series should give 0, got %v", got)
	}
	zigzag := make([]float64, 60)
	for i := range zigzag {
		zigzag[i] = 100 + math.Sin(float64(i))*float64(i%7)
	}
	for end := 2; end <= len(zigzag); end++ {
		v := RSI(zigzag[:end], 14)
		if v < 0 || v > 100 || math.IsNaN(v) {
			t.Fatalf("RSI out of bounds at %d: %v", end, v)
		}
	}
}

func TestRSIUsesTrailingWindowOnly(t *testing.T) {
	// A crash far in the past must not affect the trailing window.
	prices := append([]float64{500, 1}, ramp(20, 100, 1)...)
	if got := RSI(prices, 14); got != 100 {
		t.Fatalf("expected trailing-only RSI 100, got %v", got)
	}
}

func TestATR(t *testing.T) {
	if got := ATR([]float64{1}, []float64{0}, []float64{0.5}, 14); got != 1 {
		t.Fatalf("insufficient data should give 1, got %v", got)
	}
	highs := []float64{11, 12, 13, 14}
	lows := []float64{9, 10, 11, 12}
	closes := []float64{10, 11, 12, 13}
	// TR per bar 1..3 = max(2, 2, 0) = 2.
	if got := ATR(highs, lows, closes, 3); got != 2 {
		t.Fatalf("expected ATR 2, got %v", got)
	}
	// Gap up: |high - prevClose| dominates.
	highs = []float64{10, 20}
	lows = []float64{9, 19}
	closes = []float64{9.5, 19.5}
	if got := ATR(highs, lows, closes, 1); got != 10.5 {
		t.Fatalf("expected gap TR 10.5, got %v", got)
	}
}

func TestMACD(t *testing.T) {
	if got := MACD(ramp(10, 1, 1), 12, 26, 9); got != (MACDValue{}) {
		t.Fatalf("short series should give zero value, got %+v", got)
	}
	closes := ramp(60, 100, 0.5)
	lines := MACDSeries(closes, 12, 26, 9)
	if lines.MACD[24].Valid || !lines.MACD[25].Valid {
		t.Fatalf("MACD line should start at index 25")
	}
	if lines.Signal[32].Valid || !lines.Signal[33].Valid {
		t.Fatalf("signal line should start at index 33")
	}
	v := MACD(closes, 12, 26, 9)
	if v.MACD <= 0 {
		t.Fatalf("uptrend MACD should be positive, got %v", v.MACD)
	}
	if math.Abs(v.Histogram-(v.MACD-v.Signal)) > 1e-12 {
		t.Fatalf("histogram mismatch: %+v", v)
	}
}

func TestADX(t *testing.T) {
	h := ramp(20, 101, 1)
	l := ramp(20, 99, 1)
	c := ramp(20, 100, 1)
	if got := ADX(h, l, c, 14); got != 0 {
		t.Fatalf("fewer than 2*period samples should give 0, got %v", got)
	}
	h = ramp(60, 101, 1)
	l = ramp(60, 99, 1)
	c = ramp(60, 100, 1)
	got := ADX(h, l, c, 14)
	if got < 99 || got > 100 {
		t.Fatalf("pure uptrend ADX should approach 100, got %v", got)
	}
}

func TestSupportResistance(t *testing.T) {
	candles := []types.Candle{
		{Low: 5, High: 9}, {Low: 4, High: 8}, {Low: 6, High: 12},
	}
	if _, _, ok := SupportResistance(candles, 5); ok {
		t.Fatal("expected not ok for short history")
	}
	s, r, ok := SupportResistance(candles, 2)
	if !ok || s != 4 || r != 12 {
		t.Fatalf("unexpected levels s=%v r=%v ok=%v", s, r, ok)
	}
}

func TestComputeSnapshot(t *testing.T) {
	var candles []types.Candle
	for i := 0; i < 80; i++ {
		p := 100 + float64(i)*0.1
		candles = append(candles, types.Candle{
			Time: int64(i * 60), Open: p - 0.05, High: p + 0.1, Low: p - 0.1, Close: p, Volume: 10,
		})
	}
	snap := Compute(candles, config.DefaultStrategy())
	if !snap.EMAFast.Valid || !snap.EMASlow.Valid {
		t.Fatalf("EMAs should be defined after 80 bars: %+v", snap)
	}
	if snap.VolumeFactor != 1 {
		t.Fatalf("flat volume factor should be 1, got %v", snap.VolumeFactor)
	}
	if !snap.HasLevels || snap.Support >= snap.Resistance {
		t.Fatalf("bad levels: %+v", snap)
	}
	if Compute(candles[:10], config.DefaultStrategy()).EMAFast.Valid {
		t.Fatal("EMA20 must be undefined after 10 bars")
	}
}

func TestSampleJSON(t *testing.T) {
	b, err := json.Marshal([]Sample{None, Some(1.5)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[null,1.5]" {
		t.Fatalf("unexpected JSON %s", b)
	}
}
