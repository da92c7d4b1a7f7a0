package exchange

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// PaperExchangeID is the venue id of the simulated exchange.
const PaperExchangeID = "paper"

// PaperExchange simulates a venue against bars from a MarketDataProvider.
// Submissions are acknowledged immediately; fills are decided when the order
// is queried, from the latest bar at that moment. Completely filled orders
// are reported with status "closed", mirroring the quirk real exchanges show,
// so ingestion exercises the CLOSED -> FILLED normalization.
type PaperExchange struct {
	provider MarketDataProvider
	orders   map[string]types.RawOrder
	log      *logger.Logger
}

// NewPaperExchange creates a simulated venue pricing fills from the provider.
func NewPaperExchange(provider MarketDataProvider, log *logger.Logger) *PaperExchange {
	return &PaperExchange{
		provider: provider,
		orders:   make(map[string]types.RawOrder),
		log:      log,
	}
}

// ID implements Adapter.
func (e *PaperExchange) ID() string {
	return PaperExchangeID
}

// SubmitOrder implements Adapter.
func (e *PaperExchange) SubmitOrder(_ context.Context, order *types.Order) (types.RawOrder, error) {
	if order.Quantity <= 0 || (order.Type.Kind() != types.OrderKindMarket && order.Price <= 0) {
		return types.RawOrder{}, errors.Newf(errors.ErrCodeAdapterRejected,
			"rejected order for %s: non-positive price or quantity", order.Asset.Symbol())
	}

	raw := order.Raw()
	raw.ID = uuid.NewString()
	raw.Status = string(types.OrderStatusOpen)
	raw.Filled = 0
	e.orders[raw.ID] = raw

	e.log.Debug("paper exchange acknowledged order",
		zap.String("exchange_order_id", raw.ID),
		zap.String("symbol", raw.Symbol),
		zap.Float64("price", raw.Price),
		zap.Float64("amount", raw.Amount),
	)

	return raw, nil
}

// CancelOrder implements Adapter.
func (e *PaperExchange) CancelOrder(_ context.Context, order *types.Order) (types.RawOrder, error) {
	raw, ok := e.orders[order.ExchangeOrderID]
	if !ok {
		return types.RawOrder{}, errors.Newf(errors.ErrCodeExchangeOrderNotFound,
			"no order %s on paper exchange", order.ExchangeOrderID)
	}

	raw.Status = string(types.OrderStatusCanceled)
	e.orders[raw.ID] = raw

	return raw, nil
}

// FetchOrder implements Adapter. A limit order fills when the latest bar
// trades through its price; a market order fills at the bar close.
func (e *PaperExchange) FetchOrder(_ context.Context, exchangeOrderID string, asset types.Asset) (types.RawOrder, error) {
	raw, ok := e.orders[exchangeOrderID]
	if !ok {
		return types.RawOrder{}, errors.Newf(errors.ErrCodeExchangeOrderNotFound,
			"no order %s on paper exchange", exchangeOrderID)
	}

	if raw.Status != string(types.OrderStatusOpen) {
		return raw, nil
	}

	bar, ok := e.provider.Latest(asset)
	if !ok {
		return raw, nil
	}

	if e.fills(raw, bar) {
		raw.Filled = raw.Amount
		if raw.Type == string(types.OrderKindMarket) {
			raw.Price = bar.Close
		}
		// Report the exchange-side synonym for a completely filled order.
		raw.Status = "closed"
		e.orders[raw.ID] = raw
	}

	return raw, nil
}

func (e *PaperExchange) fills(raw types.RawOrder, bar types.MarketData) bool {
	if raw.Type == string(types.OrderKindMarket) {
		return true
	}

	if raw.Side == string(types.OrderSideBuy) {
		return bar.Low <= raw.Price
	}

	return bar.High >= raw.Price
}
