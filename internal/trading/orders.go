package trading

import (
	"context"
	"time"

	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Order builders. Each creates an order in CREATED state and registers it
// with the portfolio; the next step submits it. Market orders carry the
// latest close as a reference price so the ledger can reserve funds.

// LimitBuy places a limit buy for the asset.
func (c *Context) LimitBuy(asset types.Asset, price, quantity float64) (*types.Order, error) {
	return c.placeOrder(asset, price, quantity, types.OrderTypeLimitBuy)
}

// LimitSell places a limit sell for the asset.
func (c *Context) LimitSell(asset types.Asset, price, quantity float64) (*types.Order, error) {
	return c.placeOrder(asset, price, quantity, types.OrderTypeLimitSell)
}

// MarketBuy places a market buy for the asset at the latest close.
func (c *Context) MarketBuy(asset types.Asset, quantity float64) (*types.Order, error) {
	price, err := c.referencePrice(asset)
	if err != nil {
		return nil, err
	}

	return c.placeOrder(asset, price, quantity, types.OrderTypeMarketBuy)
}

// MarketSell places a market sell for the asset at the latest close.
func (c *Context) MarketSell(asset types.Asset, quantity float64) (*types.Order, error) {
	price, err := c.referencePrice(asset)
	if err != nil {
		return nil, err
	}

	return c.placeOrder(asset, price, quantity, types.OrderTypeMarketSell)
}

// CancelOrder asks the exchange to cancel an open order and, once the venue
// confirms, cancels it in the portfolio so its remaining reservation is
// released in the same call.
func (c *Context) CancelOrder(ctx context.Context, orderID string) error {
	order, ok := c.portfolio.Order(orderID)
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidOrder, "unknown order %s", orderID)
	}

	if order.Status != types.OrderStatusOpen {
		return errors.Newf(errors.ErrCodeInvalidTransition,
			"order %s is %s, only open orders can be canceled", orderID, order.Status)
	}

	if _, err := c.exchange.CancelOrder(ctx, order); err != nil {
		return err
	}

	return c.portfolio.ApplyCancel(order, c.cancelTime(order.Asset))
}

// cancelTime stamps a cancellation with the latest bar's time so backtests
// stay on bar time; live runs without a bar yet fall back to the clock.
func (c *Context) cancelTime(asset types.Asset) time.Time {
	if latest, ok := c.feed.Latest(asset); ok {
		return latest.Time
	}

	return time.Now().UTC()
}

func (c *Context) placeOrder(asset types.Asset, price, quantity float64, orderType types.OrderType) (*types.Order, error) {
	order := types.NewOrder(c.exchange.ID(), asset, price, quantity, orderType)

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := c.portfolio.AddOrder(order); err != nil {
		return nil, err
	}

	return order, nil
}

func (c *Context) referencePrice(asset types.Asset) (float64, error) {
	latest, ok := c.feed.Latest(asset)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeFeedUnavailable, "no bar yet for %s", asset.Symbol())
	}

	return latest.Close, nil
}
