package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Portfolio aggregates the Balance ledger, every order ever created, and the
// performance tracker.
//
// Order status changes and their balance effects are paired inside the Apply
// methods: a caller cannot transition an order without the matching ledger
// update happening in the same call. The invariant protected here is that the
// currency exposure implied by open orders never exceeds what the ledger
// reports as used.
type Portfolio struct {
	balance  *Balance
	orders   map[string]*types.Order
	orderIDs []string
	perf     *PerformanceTracker
}

// NewPortfolio creates a portfolio around an existing ledger and tracker.
func NewPortfolio(balance *Balance, perf *PerformanceTracker) *Portfolio {
	return &Portfolio{
		balance: balance,
		orders:  make(map[string]*types.Order),
		perf:    perf,
	}
}

// Balance returns the ledger.
func (p *Portfolio) Balance() *Balance {
	return p.balance
}

// Performance returns the performance tracker.
func (p *Portfolio) Performance() *PerformanceTracker {
	return p.perf
}

// AddOrder registers a newly created order. Orders are never removed.
func (p *Portfolio) AddOrder(order *types.Order) error {
	if _, ok := p.orders[order.ID]; ok {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order %s already registered", order.ID)
	}

	p.orders[order.ID] = order
	p.orderIDs = append(p.orderIDs, order.ID)

	return nil
}

// Order returns a registered order by id.
func (p *Portfolio) Order(id string) (*types.Order, bool) {
	order, ok := p.orders[id]

	return order, ok
}

// Orders returns all orders in creation order.
func (p *Portfolio) Orders() []*types.Order {
	orders := make([]*types.Order, 0, len(p.orderIDs))
	for _, id := range p.orderIDs {
		orders = append(orders, p.orders[id])
	}

	return orders
}

// OpenOrders returns orders acknowledged by the exchange and not yet closed.
func (p *Portfolio) OpenOrders() []*types.Order {
	var open []*types.Order
	for _, order := range p.Orders() {
		if order.Status == types.OrderStatusOpen {
			open = append(open, order)
		}
	}

	return open
}

// PendingOrders returns orders awaiting submission or resubmission.
func (p *Portfolio) PendingOrders() []*types.Order {
	var pending []*types.Order
	for _, order := range p.Orders() {
		if order.Status == types.OrderStatusCreated || order.Status == types.OrderStatusFailed {
			pending = append(pending, order)
		}
	}

	return pending
}

// ApplyAck opens the order and reserves its outstanding exposure in the same
// step: the quote-side cost for buys, the base quantity for sells. Filled
// progress carried over from before a FAILED resubmission was already
// settled, so only the remainder is reserved.
func (p *Portfolio) ApplyAck(order *types.Order, exchangeOrderID string, t time.Time) error {
	currency, reserve := p.exposure(order, order.RemainingQuantity())

	amount, err := p.balance.Get(currency)
	if err != nil {
		return err
	}

	free := decimal.NewFromFloat(amount.Free).Sub(reserve)
	if free.IsNegative() {
		return errors.Newf(errors.ErrCodeInvalidOrder,
			"order %s needs %s %s but only %f is free", order.ID, reserve, currency, amount.Free)
	}

	if err := order.Open(exchangeOrderID, t); err != nil {
		return err
	}

	used := decimal.NewFromFloat(amount.Used).Add(reserve)
	freeValue, _ := free.Float64()
	usedValue, _ := used.Float64()

	return p.balance.Update(currency, freeValue, usedValue)
}

// ApplyFill records fill progress and settles the newly filled portion:
// reserved funds are consumed and the acquired currency is credited. The
// acquired currency is added to the ledger on first contact.
func (p *Portfolio) ApplyFill(order *types.Order, filled, cost, fee float64, t time.Time) error {
	delta := decimal.NewFromFloat(filled).Sub(decimal.NewFromFloat(order.FilledQuantity))
	if delta.IsNegative() {
		// Stale report; the order method ignores it as well.
		delta = decimal.Zero
	}

	if err := order.ApplyFill(filled, cost, t); err != nil {
		return err
	}

	order.Fee = fee

	if delta.IsZero() {
		return nil
	}

	spent, credited := p.settlement(order, delta)

	spentCurrency, _ := p.exposure(order, 0)
	amount, err := p.balance.Get(spentCurrency)
	if err != nil {
		return err
	}

	used, _ := decimal.NewFromFloat(amount.Used).Sub(spent).Float64()
	if err := p.balance.Update(spentCurrency, amount.Free, used); err != nil {
		return err
	}

	creditCurrency := order.Asset.Base
	if order.Type.IsSell() {
		creditCurrency = order.Asset.Quote
	}

	if !p.balance.Has(creditCurrency) {
		if err := p.balance.AddCurrency(creditCurrency); err != nil {
			return err
		}
	}

	creditAmount, err := p.balance.Get(creditCurrency)
	if err != nil {
		return err
	}

	free, _ := decimal.NewFromFloat(creditAmount.Free).Add(credited).Float64()

	return p.balance.Update(creditCurrency, free, creditAmount.Used)
}

// ApplyCancel cancels the order and releases any reservation still held.
func (p *Portfolio) ApplyCancel(order *types.Order, t time.Time) error {
	wasOpen := order.Status == types.OrderStatusOpen

	if err := order.Cancel(t); err != nil {
		return err
	}

	if wasOpen {
		return p.release(order)
	}

	return nil
}

// ApplyFail marks a rejection, releasing the reservation when the order had
// already been acknowledged. A later successful resubmission reserves again.
func (p *Portfolio) ApplyFail(order *types.Order) error {
	wasOpen := order.Status == types.OrderStatusOpen

	if err := order.Fail(); err != nil {
		return err
	}

	if wasOpen {
		return p.release(order)
	}

	return nil
}

// ApplyKill escalates a failed order past its retry ceiling. Any reservation
// was already released when the order left OPEN.
func (p *Portfolio) ApplyKill(order *types.Order) error {
	return order.Kill()
}

// OpenExposure sums the reserved exposure of open orders in the currency.
func (p *Portfolio) OpenExposure(currency types.Currency) float64 {
	total := decimal.Zero
	for _, order := range p.OpenOrders() {
		c, reserve := p.exposure(order, order.RemainingQuantity())
		if c == currency {
			total = total.Add(reserve)
		}
	}

	value, _ := total.Float64()

	return value
}

// exposure returns the currency an order's reservation lives in and the
// reserve needed for the given quantity.
func (p *Portfolio) exposure(order *types.Order, quantity float64) (types.Currency, decimal.Decimal) {
	qty := decimal.NewFromFloat(quantity)
	if order.Type.IsBuy() {
		return order.Asset.Quote, qty.Mul(decimal.NewFromFloat(order.Price))
	}

	return order.Asset.Base, qty
}

// settlement returns the reserved amount consumed and the amount credited for
// a fill of delta base units.
func (p *Portfolio) settlement(order *types.Order, delta decimal.Decimal) (spent, credited decimal.Decimal) {
	quoteAmount := delta.Mul(decimal.NewFromFloat(order.Price))
	if order.Type.IsBuy() {
		return quoteAmount, delta
	}

	return delta, quoteAmount
}

func (p *Portfolio) release(order *types.Order) error {
	currency, reserve := p.exposure(order, order.RemainingQuantity())

	amount, err := p.balance.Get(currency)
	if err != nil {
		return err
	}

	free, _ := decimal.NewFromFloat(amount.Free).Add(reserve).Float64()
	used, _ := decimal.NewFromFloat(amount.Used).Sub(reserve).Float64()

	return p.balance.Update(currency, free, used)
}
