package indicator

import (
	"github.com/evdnx/goti"

	"github.com/evdnx/gosig/types"
)

// OscillatorReadings are the supplementary goti readings shown next to the
// strategy indicators. They never feed the entry rules.
type OscillatorReadings struct {
	MFI        float64 `json:"mfi"`
	MFIValid   bool    `json:"mfiValid"`
	ATSO       float64 `json:"atso"`
	ATSOValid  bool    `json:"atsoValid"`
	HMABullish bool    `json:"hmaBullish"`
	HMABearish bool    `json:"hmaBearish"`
}

// Oscillators feeds finalized candles into a goti.IndicatorSuite.
type Oscillators struct {
	suite *goti.IndicatorSuite
	bars  int
}

// NewOscillators builds the suite with the dashboard's thresholds.
func NewOscillators() (*Oscillators, error) {
	ic := goti.DefaultConfig()
	ic.RSIOverbought = 70
	ic.RSIOversold = 30
	ic.MFIOverbought = 80
	ic.MFIOversold = 20
	suite, err := goti.NewIndicatorSuiteWithConfig(ic)
	if err != nil {
		return nil, err
	}
	return &Oscillators{suite: suite}, nil
}

// Add appends one finalized bar.
func (o *Oscillators) Add(c types.Candle) error {
	if err := o.suite.Add(c.High, c.Low, c.Close, c.Volume); err != nil {
		return err
	}
	o.bars++
	return nil
}

// Bars is the number of bars accepted so far.
func (o *Oscillators) Bars() int { return o.bars }

// Readings returns the latest values; calculation errors (warm-up) leave
// the corresponding Valid flag false.
func (o *Oscillators) Readings() OscillatorReadings {
	var r OscillatorReadings
	if v, err := o.suite.GetMFI().Calculate(); err == nil {
		r.MFI, r.MFIValid = v, true
	}
	if v, err := o.suite.GetATSO().Calculate(); err == nil {
		r.ATSO, r.ATSOValid = v, true
	}
	if ok, err := o.suite.GetHMA().IsBullishCrossover(); err == nil {
		r.HMABullish = ok
	}
	if ok, err := o.suite.GetHMA().IsBearishCrossover(); err == nil {
		r.HMABearish = ok
	}
	return r
}
