package testutils

import "github.com/evdnx/gosig/types"

// BarSeconds is the spacing of generated candles.
const BarSeconds = 60

// StartTime is the open time of the first generated candle.
const StartTime int64 = 1_700_000_000

// Bar builds a finalized candle at index i of a generated series.
func Bar(i int, open, high, low, close, volume float64) types.Candle {
	return types.Candle{
		Time:    StartTime + int64(i)*BarSeconds,
		Open:    open,
		High:    high,
		Low:     low,
		Close:   close,
		Volume:  volume,
		IsFinal: true,
	}
}

// Uptrend returns n finalized candles drifting up by step per bar. Every
// bar opens at the previous close with a small body and a constant range,
// so ATR stays near 0.3 and no bar has a body large enough to signal.
func Uptrend(n int, start, step, volume float64) []types.Candle {
	out := make([]types.Candle, 0, n)
	prev := start
	for i := 0; i < n; i++ {
		open := prev
		close := open + step
		out = append(out, Bar(i, open, close+0.1, open-0.1, close, volume))
		prev = close
	}
	return out
}

// Zigzag returns n finalized candles whose closes alternate +up (even
// index) and -down (odd index), each bar opening at the previous close
// with 0.1 wicks. With up=0.3 and down=0.2 the ATR sits near 0.45 and RSI
// near 60, so no ordinary bar passes the body filter.
func Zigzag(n int, start, up, down, volume float64) []types.Candle {
	out := make([]types.Candle, 0, n)
	prev := start
	for i := 0; i < n; i++ {
		open := prev
		close := open + up
		if i%2 == 1 {
			close = open - down
		}
		hi, lo := close, open
		if lo > hi {
			hi, lo = lo, hi
		}
		out = append(out, Bar(i, open, hi+0.1, lo-0.1, close, volume))
		prev = close
	}
	return out
}

// Impulse builds a bullish bar at index i with the given body and volume.
func Impulse(i int, open, body, volume float64) types.Candle {
	return Bar(i, open, open+body+0.1, open-0.1, open+body, volume)
}

// Flat returns n finalized doji candles at price.
func Flat(n int, price, volume float64) []types.Candle {
	out := make([]types.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Bar(i, price, price+0.1, price-0.1, price, volume))
	}
	return out
}

// Retime rewrites candle times so they follow on from index start.
func Retime(cs []types.Candle, start int) []types.Candle {
	out := make([]types.Candle, len(cs))
	for i, c := range cs {
		c.Time = StartTime + int64(start+i)*BarSeconds
		out[i] = c
	}
	return out
}
