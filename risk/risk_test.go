package risk

import (
	"errors"
	"testing"
)

func TestSizeRiskBasedIsBinding(t *testing.T) {
	// risk $20, risk per unit 10 => 2 units; leverage allows 10 units.
	s, err := Size(SizeParams{Capital: 1000, RiskPct: 2, Leverage: 1, Entry: 100, Stop: 90, HardCap: 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.Size != 2 {
		t.Fatalf("unexpected size: %v", s.Size)
	}
	if s.RiskAmount != 20 || s.RiskPerUnit != 10 || s.LeverageBased != 10 {
		t.Fatalf("unexpected breakdown: %+v", s)
	}
}

func TestSizeLeverageIsBinding(t *testing.T) {
	// Tight stop makes risk size huge; buying power caps at 1000/2000 = 0.5.
	s, err := Size(SizeParams{Capital: 1000, RiskPct: 2, Leverage: 1, Entry: 2000, Stop: 1999.9, HardCap: 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.Size != 0.5 {
		t.Fatalf("expected leverage-bound 0.5, got %v", s.Size)
	}
}

func TestSizeHardCapIsBinding(t *testing.T) {
	s, err := Size(SizeParams{Capital: 1_000_000, RiskPct: 2, Leverage: 10, Entry: 10, Stop: 9, HardCap: 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.Size != 5 {
		t.Fatalf("expected hard cap 5, got %v", s.Size)
	}
}

func TestSizeFloorsToFourDecimals(t *testing.T) {
	// risk $20 / 3 = 6.6666.. capped by leverage 1000/150 = 6.6666.. -> floor.
	s, err := Size(SizeParams{Capital: 1000, RiskPct: 2, Leverage: 1, Entry: 150, Stop: 147, HardCap: 100})
	if err != nil {
		t.Fatal(err)
	}
	if s.Size != 6.6666 {
		t.Fatalf("expected 6.6666, got %v", s.Size)
	}
}

func TestSizeEqualEntryAndStopIsFinite(t *testing.T) {
	s, err := Size(SizeParams{Capital: 1000, RiskPct: 2, Leverage: 1, Entry: 100, Stop: 100, HardCap: 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.RiskPerUnit != MinRiskPerUnit {
		t.Fatalf("risk per unit not floored: %v", s.RiskPerUnit)
	}
	if s.Size != 5 {
		t.Fatalf("expected cap-bound size, got %v", s.Size)
	}
}

func TestSizeRejectsNonPositiveEntry(t *testing.T) {
	for _, entry := range []float64{0, -1} {
		if _, err := Size(SizeParams{Capital: 1000, RiskPct: 2, Leverage: 1, Entry: entry, Stop: -2, HardCap: 5}); !errors.Is(err, ErrInvalidEntry) {
			t.Fatalf("entry %v: expected ErrInvalidEntry, got %v", entry, err)
		}
	}
}

func TestSizeZeroCapitalGivesZero(t *testing.T) {
	s, err := Size(SizeParams{Capital: 0, RiskPct: 2, Leverage: 1, Entry: 100, Stop: 99, HardCap: 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.Size != 0 {
		t.Fatalf("expected 0, got %v", s.Size)
	}
}

func TestSizeMonotonicity(t *testing.T) {
	base := SizeParams{Capital: 5000, Leverage: 1, Entry: 100, Stop: 97, HardCap: 5}
	prevRisk := -1.0
	for pct := 0.5; pct <= 10; pct += 0.5 {
		p := base
		p.RiskPct = pct
		s, err := Size(p)
		if err != nil {
			t.Fatal(err)
		}
		if s.RiskBased < prevRisk {
			t.Fatalf("risk term decreased at %v%%: %v < %v", pct, s.RiskBased, prevRisk)
		}
		if s.Size > p.HardCap {
			t.Fatalf("size %v exceeds cap", s.Size)
		}
		prevRisk = s.RiskBased
	}

	prevLev := -1.0
	for lev := 0.25; lev <= 20; lev *= 2 {
		p := base
		p.RiskPct = 2
		p.Leverage = lev
		s, err := Size(p)
		if err != nil {
			t.Fatal(err)
		}
		if s.LeverageBased < prevLev {
			t.Fatalf("leverage term decreased at %vx", lev)
		}
		if s.Size > p.HardCap {
			t.Fatalf("size %v exceeds cap", s.Size)
		}
		prevLev = s.LeverageBased
	}
}

func TestFloor(t *testing.T) {
	if got := Floor(1.23456789, 4); got != 1.2345 {
		t.Fatalf("got %v", got)
	}
	if got := Floor(2, 4); got != 2 {
		t.Fatalf("got %v", got)
	}
}
