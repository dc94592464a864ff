// Package indicator holds pure technical-indicator functions over finite
// numeric sequences. Every function degrades to a documented default when
// there is not enough history instead of failing.
package indicator

import (
	"math"
	"strconv"
)

// Sample is one point of an indicator series. Valid is false while the
// indicator is still warming up, which keeps "not yet computable" apart
// from "computed to zero".
type Sample struct {
	Value float64
	Valid bool
}

// Some wraps a computed value.
func Some(v float64) Sample { return Sample{Value: v, Valid: true} }

// None is the warm-up sentinel.
var None = Sample{}

// MarshalJSON encodes a warm-up sample as null.
func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, s.Value, 'f', -1, 64), nil
}

// Last returns the final sample of s, or None for an empty series.
func Last(s []Sample) Sample {
	if len(s) == 0 {
		return None
	}
	return s[len(s)-1]
}

// SMA is the mean of the trailing min(len, period) elements; 0 for an
// empty series.
func SMA(series []float64, period int) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	if period <= 0 || period > n {
		period = n
	}
	sum := 0.0
	for _, v := range series[n-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA seeds with the mean of the first period values and then applies
// v*k + prev*(1-k) with k = 2/(period+1). The result is aligned to the
// input with period-1 leading None samples. An input shorter than period
// yields an empty series.
func EMA(series []float64, period int) []Sample {
	if period <= 0 || len(series) < period {
		return []Sample{}
	}
	out := make([]Sample, len(series))
	k := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range series[:period] {
		seed += v
	}
	seed /= float64(period)
	out[period-1] = Some(seed)

	prev := seed
	for i := period; i < len(series); i++ {
		prev = series[i]*k + prev*(1-k)
		out[i] = Some(prev)
	}
	return out
}

// RSI uses only the trailing period+1 prices. It returns 50 with fewer
// samples and 100 when the average loss is zero.
func RSI(prices []float64, period int) float64 {
	n := len(prices)
	if period <= 0 || n < period+1 {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := n - period; i < n; i++ {
		diff := prices[i] - prices[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// trueRanges returns max(h-l, |h-prevClose|, |l-prevClose|) for bars 1..n-1.
func trueRanges(highs, lows, closes []float64) []float64 {
	n := minLen(highs, lows, closes)
	if n < 2 {
		return nil
	}
	out := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		out = append(out, tr)
	}
	return out
}

// ATR is the mean of the trailing period true ranges. It returns 1 when
// fewer than period+1 bars exist or when the mean is zero, so callers can
// always divide by it.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period <= 0 || minLen(highs, lows, closes) < period+1 {
		return 1
	}
	trs := trueRanges(highs, lows, closes)
	look := trs[len(trs)-period:]
	sum := 0.0
	for _, v := range look {
		sum += v
	}
	atr := sum / float64(len(look))
	if atr == 0 {
		return 1
	}
	return atr
}

// MACDValue is the latest MACD reading.
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACDLines holds aligned MACD, signal and histogram series.
type MACDLines struct {
	MACD      []Sample
	Signal    []Sample
	Histogram []Sample
}

// MACDSeries computes fastEMA - slowEMA, the EMA of its defined portion and
// their difference, all aligned to closes.
func MACDSeries(closes []float64, fast, slow, signal int) MACDLines {
	n := len(closes)
	lines := MACDLines{
		MACD:      make([]Sample, n),
		Signal:    make([]Sample, n),
		Histogram: make([]Sample, n),
	}
	if fast <= 0 || slow <= 0 || n < slow || n < fast {
		return lines
	}
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	start := -1
	defined := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if fastEMA[i].Valid && slowEMA[i].Valid {
			if start < 0 {
				start = i
			}
			v := fastEMA[i].Value - slowEMA[i].Value
			lines.MACD[i] = Some(v)
			defined = append(defined, v)
		}
	}
	if start < 0 {
		return lines
	}
	sig := EMA(defined, signal)
	for j, s := range sig {
		if !s.Valid {
			continue
		}
		i := start + j
		lines.Signal[i] = s
		lines.Histogram[i] = Some(lines.MACD[i].Value - s.Value)
	}
	return lines
}

// MACD returns the latest reading. A series shorter than slow yields the
// zero value; a missing signal line leaves Signal and Histogram at 0.
func MACD(closes []float64, fast, slow, signal int) MACDValue {
	if len(closes) < slow {
		return MACDValue{}
	}
	lines := MACDSeries(closes, fast, slow, signal)
	out := MACDValue{MACD: Last(lines.MACD).Value}
	if s := Last(lines.Signal); s.Valid {
		out.Signal = s.Value
		out.Histogram = Last(lines.Histogram).Value
	}
	return out
}

// ADX applies Wilder smoothing to +DM, -DM and true range and averages the
// directional index. It returns 0 with fewer than 2*period samples.
func ADX(highs, lows, closes []float64, period int) float64 {
	n := minLen(highs, lows, closes)
	if period <= 0 || n < 2*period {
		return 0
	}
	trs := trueRanges(highs, lows, closes)
	plusDM := make([]float64, len(trs))
	minusDM := make([]float64, len(trs))
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	var trS, plusS, minusS float64
	for i := 0; i < period; i++ {
		trS += trs[i]
		plusS += plusDM[i]
		minusS += minusDM[i]
	}
	p := float64(period)
	dxs := make([]float64, 0, len(trs)-period+1)
	dxs = append(dxs, dx(plusS, minusS, trS))
	for i := period; i < len(trs); i++ {
		trS = trS - trS/p + trs[i]
		plusS = plusS - plusS/p + plusDM[i]
		minusS = minusS - minusS/p + minusDM[i]
		dxs = append(dxs, dx(plusS, minusS, trS))
	}

	adx := 0.0
	for _, v := range dxs[:period] {
		adx += v
	}
	adx /= p
	for _, v := range dxs[period:] {
		adx = (adx*(p-1) + v) / p
	}
	return adx
}

func dx(plus, minus, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	plusDI := 100 * plus / tr
	minusDI := 100 * minus / tr
	sum := plusDI + minusDI
	if sum == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / sum
}

func minLen(a, b, c []float64) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(c) < n {
		n = len(c)
	}
	return n
}
