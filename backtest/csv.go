package backtest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/evdnx/gosig/types"
)

// ReadCSV parses rows of time,open,high,low,close[,volume]. Times are unix
// seconds or milliseconds. A header row, unparsable rows and bars that fail
// Candle.Valid (NaN, Inf, low above high) are skipped;
// UTF-16 input with a byte-order mark is decoded. The result is in file
// order and every candle is final.
func ReadCSV(r io.Reader) ([]types.Candle, error) {
	br := bufio.NewReader(r)
	if b, _ := br.Peek(2); len(b) == 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		br = bufio.NewReader(transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []types.Candle
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if len(rec) < 5 {
			continue
		}
		c, ok := parseRow(rec)
		if !ok || !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, errors.New("backtest: no candles parsed")
	}
	return out, nil
}

func parseRow(rec []string) (types.Candle, bool) {
	ts, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff")), 10, 64)
	if err != nil {
		return types.Candle{}, false
	}
	if ts > 1e11 {
		ts /= 1000
	}
	var v [5]float64
	for i := 1; i < len(rec) && i <= 5; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.Trim(rec[i], `"`)), 64)
		if err != nil {
			return types.Candle{}, false
		}
		v[i-1] = f
	}
	return types.Candle{
		Time:    ts,
		Open:    v[0],
		High:    v[1],
		Low:     v[2],
		Close:   v[3],
		Volume:  v[4],
		IsFinal: true,
	}, true
}

var tradeHeader = []string{
	"id", "status", "entry_time", "exit_time", "entry", "exit", "stop", "target",
	"size", "raw_pnl", "costs", "profit", "balance_after",
}

// WriteTradesCSV writes one row per ledger entry.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, t := range trades {
		row := []string{
			t.ID,
			string(t.Status),
			strconv.FormatInt(t.EntryTimestamp, 10),
			strconv.FormatInt(t.ExitTimestamp, 10),
			f(t.EntryPrice),
			f(t.ExitPrice),
			f(t.StopPrice),
			f(t.TargetPrice),
			f(t.Size),
			f(t.RawPnL),
			f(t.Costs),
			f(t.Profit),
			f(t.BalanceAfter),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
