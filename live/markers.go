package live

import (
	"fmt"
	"sort"

	"github.com/evdnx/gosig/tradelog"
	"github.com/evdnx/gosig/types"
)

// Marker is a chart annotation for one trade-log row.
type Marker struct {
	ID       string       `json:"id"`
	Time     int64        `json:"time"`
	Status   types.Status `json:"status"`
	Position string       `json:"position"`
	Shape    string       `json:"shape"`
	Color    string       `json:"color"`
	Text     string       `json:"text"`
}

const (
	colorWin     = "#26a69a"
	colorLoss    = "#ef5350"
	colorOpen    = "#f5c542"
	colorTimeout = "#9e9e9e"
)

// MarkerFor converts one row; ok is false for rows that are not drawn
// (lapsed pending orders).
func MarkerFor(r tradelog.Record) (Marker, bool) {
	m := Marker{ID: r.ID, Status: r.Status}
	at := r.EntryTime
	if r.ExitTime != nil {
		at = *r.ExitTime
	}
	m.Time = at.Unix()

	switch r.Status {
	case types.StatusWin:
		m.Position, m.Shape, m.Color = "belowBar", "arrowUp", colorWin
		m.Text = fmt.Sprintf("WIN %+.2f", r.NetPnL)
	case types.StatusLoss:
		m.Position, m.Shape, m.Color = "aboveBar", "arrowDown", colorLoss
		m.Text = fmt.Sprintf("LOSS %+.2f", r.NetPnL)
	case types.StatusTimeout:
		m.Position, m.Shape, m.Color = "aboveBar", "square", colorTimeout
		m.Text = fmt.Sprintf("TIMEOUT %+.2f", r.NetPnL)
	case types.StatusOpen:
		m.Position, m.Shape, m.Color = "belowBar", "circle", colorOpen
		m.Text = fmt.Sprintf("BUY @ %.2f", r.EntryPrice)
	default:
		return Marker{}, false
	}
	return m, true
}

// Markers converts trade-log rows into annotations sorted by time.
func Markers(records []tradelog.Record) []Marker {
	out := make([]Marker, 0, len(records))
	for _, r := range records {
		if m, ok := MarkerFor(r); ok {
			out = append(out, m)
		}
	}
	sortMarkers(out)
	return out
}

func sortMarkers(ms []Marker) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Time < ms[j].Time })
}
