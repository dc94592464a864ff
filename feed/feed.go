// Package feed adapts market-data sources into 1-minute candle snapshots
// and streams.
package feed

import (
	"context"
	"errors"

	"github.com/evdnx/gosig/types"
)

// ErrStreamClosed is reported when a stream ends without the caller
// cancelling it.
var ErrStreamClosed = errors.New("feed: stream closed")

// Feed is a live candle source.
type Feed interface {
	// Snapshot returns the last limit bars, oldest first. The final bar may
	// still be forming and is not marked final.
	Snapshot(ctx context.Context, limit int) ([]types.Candle, error)
	// Stream delivers bar updates in arrival order. The same bar time
	// repeats until an update arrives with IsFinal set. The channel closes
	// when the connection drops or ctx ends; callers resnapshot before
	// streaming again.
	Stream(ctx context.Context) (<-chan types.Candle, error)
}
