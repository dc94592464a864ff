package strategy

import (
	"testing"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/types"
)

func activeTrade() types.Trade {
	return types.Trade{
		ID:             "t1",
		Side:           types.Buy,
		Status:         types.StatusOpen,
		EntryPrice:     100,
		StopPrice:      99,
		TargetPrice:    102,
		Size:           1,
		EntryTimestamp: 1000,
	}
}

func TestResolveTieBreakTPFirst(t *testing.T) {
	c := types.Candle{Time: 1060, Open: 100, High: 102.5, Low: 98.5, Close: 100}
	exit, ok := Resolve(activeTrade(), c, config.TieTPFirst, 3600)
	if !ok || exit.Status != types.StatusWin {
		t.Fatalf("expected WIN on tie, got %+v ok=%v", exit, ok)
	}
	if exit.Price != 102.5 {
		t.Fatalf("win exits at max(target, high): got %v", exit.Price)
	}
	if exit.Time != c.Time {
		t.Fatalf("exit time should be the candle time, got %d", exit.Time)
	}
}

func TestResolveTieBreakDefaultsToTPFirst(t *testing.T) {
	c := types.Candle{Time: 1060, Open: 100, High: 103, Low: 98, Close: 100}
	exit, ok := Resolve(activeTrade(), c, "", 0)
	if !ok || exit.Status != types.StatusWin {
		t.Fatalf("expected WIN with unset tie-break, got %+v", exit)
	}
}

func TestResolveTieBreakSLFirst(t *testing.T) {
	c := types.Candle{Time: 1060, Open: 100, High: 102.5, Low: 98.5, Close: 100}
	exit, ok := Resolve(activeTrade(), c, config.TieSLFirst, 3600)
	if !ok || exit.Status != types.StatusLoss || exit.Price != 98.5 {
		t.Fatalf("expected LOSS at low, got %+v", exit)
	}
}

func TestResolveTieBreakOpenProximity(t *testing.T) {
	tr := activeTrade()
	nearStop := types.Candle{Time: 1060, Open: 99.2, High: 102.2, Low: 98.9, Close: 100}
	if exit, _ := Resolve(tr, nearStop, config.TieOpenProximity, 0); exit.Status != types.StatusLoss {
		t.Fatalf("open near stop should settle LOSS, got %s", exit.Status)
	}
	nearTarget := types.Candle{Time: 1060, Open: 101.8, High: 102.2, Low: 98.9, Close: 100}
	if exit, _ := Resolve(tr, nearTarget, config.TieOpenProximity, 0); exit.Status != types.StatusWin {
		t.Fatalf("open near target should settle WIN, got %s", exit.Status)
	}
}

func TestResolveSingleSide(t *testing.T) {
	tr := activeTrade()
	win, ok := Resolve(tr, types.Candle{Time: 1060, Open: 101, High: 102, Low: 100.5, Close: 101.9}, config.TieTPFirst, 0)
	if !ok || win.Status != types.StatusWin || win.Price != 102 {
		t.Fatalf("expected WIN at exactly target, got %+v", win)
	}
	loss, ok := Resolve(tr, types.Candle{Time: 1060, Open: 99.5, High: 99.8, Low: 98.7, Close: 99}, config.TieTPFirst, 0)
	if !ok || loss.Status != types.StatusLoss || loss.Price != 98.7 {
		t.Fatalf("expected LOSS at low, got %+v", loss)
	}
}

func TestResolveHoldAndTimeout(t *testing.T) {
	tr := activeTrade()
	quiet := types.Candle{Time: 1000 + 3600, Open: 100, High: 100.5, Low: 99.5, Close: 100.2}
	if _, ok := Resolve(tr, quiet, config.TieTPFirst, 3600); ok {
		t.Fatal("trade at exactly max hold must stay open")
	}
	quiet.Time++
	exit, ok := Resolve(tr, quiet, config.TieTPFirst, 3600)
	if !ok || exit.Status != types.StatusTimeout || exit.Price != quiet.Close {
		t.Fatalf("expected TIMEOUT at close, got %+v ok=%v", exit, ok)
	}
	if _, ok := Resolve(tr, quiet, config.TieTPFirst, 0); ok {
		t.Fatal("zero max hold disables the timeout")
	}
}
