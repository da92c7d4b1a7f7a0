package trading

import (
	"context"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/feed"
	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Runner drives the step loop. One step consumes one bar, submits pending
// orders, reconciles open ones, marks performance, and commits a snapshot.
// Cancellation is honored at step boundaries only, so a snapshot always
// reflects a completed step.
type Runner struct {
	ctx *Context
	log *logger.Logger
}

// NewRunner creates a runner over a resolved context.
func NewRunner(ctx *Context, log *logger.Logger) *Runner {
	return &Runner{ctx: ctx, log: log}
}

// Run executes steps until the feed is exhausted, the context is canceled, or
// the feed becomes unavailable. Exhaustion and cancellation are clean stops;
// feed unavailability is the only fatal error.
func (r *Runner) Run(ctx context.Context) error {
	var bar *progressbar.ProgressBar
	if historical, ok := r.ctx.Feed().(*feed.HistoryFeed); ok {
		bar = progressbar.Default(int64(historical.Count()), "backtest")
	}

	for {
		select {
		case <-ctx.Done():
			r.log.Info("run canceled")

			return nil
		default:
		}

		tick, err := r.ctx.Feed().Next(ctx)
		if err != nil {
			if errors.Is(err, feed.ErrEndOfData) {
				r.log.Info("feed exhausted, run complete")

				return nil
			}

			if ctx.Err() != nil {
				r.log.Info("run canceled")

				return nil
			}

			return err
		}

		if err := r.step(ctx, tick); err != nil {
			return err
		}

		if bar != nil {
			bar.Add(1)
		}
	}
}

// step processes one bar. Order-level failures are absorbed into order state;
// only persistence failures abort the run.
func (r *Runner) step(ctx context.Context, tick types.MarketData) error {
	r.submitPending(ctx, tick)
	r.reconcileOpen(ctx, tick)
	r.mark(tick)

	return r.persist(tick)
}

// submitPending pushes CREATED and retryable FAILED orders to the exchange.
// Rejections fail the order; an order that exhausts its retry ceiling is
// killed. Nothing here is fatal to the run.
func (r *Runner) submitPending(ctx context.Context, tick types.MarketData) {
	for _, order := range r.ctx.Portfolio().PendingOrders() {
		raw, err := r.ctx.Exchange().SubmitOrder(ctx, order)
		if err != nil {
			r.failOrder(order, err)

			continue
		}

		if err := r.ctx.Portfolio().ApplyAck(order, raw.ID, tick.Time); err != nil {
			r.failOrder(order, err)
		}
	}
}

// reconcileOpen pulls the exchange's view of each open order and applies it.
func (r *Runner) reconcileOpen(ctx context.Context, tick types.MarketData) {
	for _, order := range r.ctx.Portfolio().OpenOrders() {
		raw, err := r.ctx.Exchange().FetchOrder(ctx, order.ExchangeOrderID, order.Asset)
		if err != nil {
			r.log.Warn("failed to fetch order, will retry next step",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)

			continue
		}

		status, err := types.ParseOrderStatus(raw.Status)
		if err != nil {
			r.log.Error("exchange reported unrecognized order status",
				zap.String("order_id", order.ID),
				zap.String("status", raw.Status),
				zap.Error(err),
			)

			continue
		}

		switch status {
		case types.OrderStatusOpen, types.OrderStatusFilled:
			filled := raw.Filled
			if filled <= 0 {
				if status == types.OrderStatusOpen {
					continue
				}

				// A terminal filled report without a quantity means fully filled.
				filled = order.Quantity
			}

			price := raw.Price
			if price <= 0 {
				price = order.Price
			}

			cost := filled * price
			if err := r.ctx.Portfolio().ApplyFill(order, filled, cost, raw.Fee, tick.Time); err != nil {
				r.log.Error("failed to apply fill",
					zap.String("order_id", order.ID),
					zap.Error(err),
				)
			}
		case types.OrderStatusCanceled:
			if err := r.ctx.Portfolio().ApplyCancel(order, tick.Time); err != nil {
				r.log.Error("failed to apply cancel",
					zap.String("order_id", order.ID),
					zap.Error(err),
				)
			}
		case types.OrderStatusFailed:
			r.failOrder(order, errors.Newf(errors.ErrCodeAdapterRejected, "exchange reported order %s failed", order.ID))
		case types.OrderStatusCreated, types.OrderStatusKilled:
		}
	}
}

// failOrder records a submission failure and kills the order once it has
// exhausted its retry ceiling.
func (r *Runner) failOrder(order *types.Order, cause error) {
	r.log.Warn("order submission failed",
		zap.String("order_id", order.ID),
		zap.Int("retries", order.Retries),
		zap.Error(cause),
	)

	if err := r.ctx.Portfolio().ApplyFail(order); err != nil {
		r.log.Error("failed to record order failure",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)

		return
	}

	if order.Retries > r.ctx.config.MaxOrderRetries {
		if err := r.ctx.Portfolio().ApplyKill(order); err != nil {
			r.log.Error("failed to kill order",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)

			return
		}

		r.log.Warn("order exhausted retries, killed",
			zap.String("order_id", order.ID),
			zap.Int("retries", order.Retries),
		)
	}
}

// mark values the balance at the latest closes and advances the performance
// series. A currency with no bar yet defers marking to a later step.
func (r *Runner) mark(tick types.MarketData) {
	balance := r.ctx.Portfolio().Balance()
	cash := balance.CashCurrency()
	rates := make(map[string]float64)

	for _, currency := range balance.Currencies() {
		if currency == cash {
			continue
		}

		asset := types.NewAsset(currency, cash)
		if latest, ok := r.ctx.Feed().Latest(asset); ok {
			rates[asset.Symbol()] = latest.Close
		}
	}

	totalValue, err := balance.TotalValue(cash, rates)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeMissingRate) {
			r.log.Debug("skipping mark, no rate yet", zap.Error(err))

			return
		}

		r.log.Error("failed to value balance", zap.Error(err))

		return
	}

	r.ctx.Portfolio().Performance().Advance(tick.Time, totalValue)
}

// persist commits a snapshot of the completed step.
func (r *Runner) persist(tick types.MarketData) error {
	snapshot, err := r.ctx.Snapshot(tick)
	if err != nil {
		return err
	}

	return r.ctx.Store().Save(snapshot)
}
