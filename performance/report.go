package performance

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteReport prints a human-readable summary with grouped thousands.
func WriteReport(w io.Writer, s Stats) error {
	p := message.NewPrinter(language.English)
	pf := p.Sprintf("%.2f", s.ProfitFactor)
	if s.ProfitFactorInfinite {
		pf = "inf"
	}
	_, err := p.Fprintf(w,
		"trades        %d (wins %d, losses %d, timeouts %d)\n"+
			"win rate      %.1f%%\n"+
			"profit factor %s\n"+
			"net pnl       $%.2f (raw $%.2f, costs $%.2f)\n"+
			"avg win/loss  $%.2f / $%.2f (payoff %.2f)\n"+
			"expectancy    $%.2f\n"+
			"max drawdown  $%.2f (%.1f%%), max losing streak %d\n"+
			"sharpe        %.2f, recovery %.2f\n"+
			"balance       $%.2f -> $%.2f (%.1f%%)\n"+
			"verdict       %s\n",
		s.TotalTrades, s.Wins, s.Losses, s.Timeouts,
		s.WinRate,
		pf,
		s.NetPnL, s.RawPnL, s.Costs,
		s.AvgWin, s.AvgLoss, s.PayoffRatio,
		s.Expectancy,
		s.MaxDrawdown, s.MaxDrawdownPercent, s.MaxConsecutiveLosses,
		s.Sharpe, s.RecoveryFactor,
		s.Capital, s.FinalBalance, s.ReturnPct,
		s.Verdict,
	)
	return err
}
