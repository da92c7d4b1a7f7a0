// Package exchange provides the adapters orders are submitted against: a
// simulated paper venue for backtests and simulation, and a live Binance
// venue. Adapters report raw order payloads; reconciling them into portfolio
// state is the trading context's job.
package exchange

import (
	"context"

	"github.com/rxtech-lab/tradestate/internal/types"
)

// Adapter submits, cancels and queries orders against a venue.
//
// Rejections surface as errors carrying ErrCodeAdapterRejected; transient
// transport failures carry ErrCodeAdapterUnavailable and are retried by the
// adapter before surfacing.
type Adapter interface {
	// ID identifies the venue, e.g. "paper" or "binance".
	ID() string
	// SubmitOrder submits the order and returns the venue's acknowledgment.
	SubmitOrder(ctx context.Context, order *types.Order) (types.RawOrder, error)
	// CancelOrder cancels a previously acknowledged order.
	CancelOrder(ctx context.Context, order *types.Order) (types.RawOrder, error)
	// FetchOrder returns the venue's current view of the order.
	FetchOrder(ctx context.Context, exchangeOrderID string, asset types.Asset) (types.RawOrder, error)
}

// MarketDataProvider supplies the latest bar per asset. The paper venue prices
// fills from it; in a backtest it is the feed itself.
type MarketDataProvider interface {
	Latest(asset types.Asset) (types.MarketData, bool)
}
