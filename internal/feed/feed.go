// Package feed produces the sequential market-data units a trading run
// consumes: one bar per step, from a historical cursor or a live poll.
package feed

import (
	"context"
	"errors"

	"github.com/rxtech-lab/tradestate/internal/types"
)

// ErrEndOfData signals that a historical feed has been consumed completely.
// The step loop treats it as a clean stop, not a failure.
var ErrEndOfData = errors.New("feed: end of data")

// BarSource fetches the latest bar for an asset from a live venue.
type BarSource interface {
	FetchBar(ctx context.Context, asset types.Asset, timeframe types.Timeframe) (types.MarketData, error)
}

// Feed produces the next market-data unit per step.
type Feed interface {
	// Initialize binds the feed to its live bar source. Historical feeds
	// ignore it.
	Initialize(source BarSource) error
	// Next returns the next unit. Historical exhaustion returns ErrEndOfData;
	// live retrieval failures surface as ErrCodeFeedUnavailable after the
	// retry budget is spent.
	Next(ctx context.Context) (types.MarketData, error)
	// History returns up to tMinus most recently consumed units, oldest first.
	History(tMinus int) []types.MarketData
	// Latest returns the most recently consumed bar for the asset.
	Latest(asset types.Asset) (types.MarketData, bool)
}

// history tracks consumed bars for History/Latest lookups.
type history struct {
	consumed []types.MarketData
	latest   map[string]types.MarketData
}

func newHistory() history {
	return history{latest: make(map[string]types.MarketData)}
}

func (h *history) record(bar types.MarketData) {
	h.consumed = append(h.consumed, bar)
	h.latest[bar.Symbol] = bar
}

func (h *history) tail(tMinus int) []types.MarketData {
	if tMinus <= 0 || len(h.consumed) == 0 {
		return nil
	}

	if tMinus > len(h.consumed) {
		tMinus = len(h.consumed)
	}

	tail := make([]types.MarketData, tMinus)
	copy(tail, h.consumed[len(h.consumed)-tMinus:])

	return tail
}

func (h *history) latestFor(asset types.Asset) (types.MarketData, bool) {
	bar, ok := h.latest[asset.Symbol()]

	return bar, ok
}
