package risk

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidEntry is returned when the entry price is not positive, which
// leaves the buying-power ceiling undefined.
var ErrInvalidEntry = errors.New("risk: entry price must be positive")

// MinRiskPerUnit floors |entry-stop| so a degenerate setup cannot divide by zero.
const MinRiskPerUnit = 1e-8

// SizePrecision is the number of decimals a size is floored to.
const SizePrecision = 4

// SizeParams are the sizing inputs. RiskPct is a percentage (2 = 2%).
type SizeParams struct {
	Capital  float64
	RiskPct  float64
	Leverage float64
	Entry    float64
	Stop     float64
	HardCap  float64
}

// Sizing exposes the three ceilings next to the binding result.
type Sizing struct {
	Size          float64
	RiskAmount    float64
	RiskPerUnit   float64
	RiskBased     float64
	LeverageBased float64
	HardCap       float64
}

// Size returns min(riskAmount/riskPerUnit, capital*leverage/entry, hardCap),
// floored to SizePrecision decimals. A non-positive HardCap disables that
// ceiling. Negative results (negative capital) clamp to 0.
func Size(p SizeParams) (Sizing, error) {
	if p.Entry <= 0 || math.IsNaN(p.Entry) {
		return Sizing{}, ErrInvalidEntry
	}
	s := Sizing{
		RiskAmount:  p.Capital * p.RiskPct / 100,
		RiskPerUnit: math.Max(math.Abs(p.Entry-p.Stop), MinRiskPerUnit),
		HardCap:     p.HardCap,
	}
	s.RiskBased = s.RiskAmount / s.RiskPerUnit
	s.LeverageBased = p.Capital * p.Leverage / p.Entry

	size := math.Min(s.RiskBased, s.LeverageBased)
	if p.HardCap > 0 {
		size = math.Min(size, p.HardCap)
	}
	if size <= 0 || math.IsNaN(size) {
		return s, nil
	}
	s.Size = Floor(size, SizePrecision)
	return s, nil
}

// Floor truncates v toward zero at the given number of decimals.
func Floor(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Truncate(places).Float64()
	return f
}
