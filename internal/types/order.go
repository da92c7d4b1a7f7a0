package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusCreated means the order has not yet been submitted to the exchange.
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusOpen means the exchange acknowledged the submission.
	OrderStatusOpen OrderStatus = "OPEN"
	// OrderStatusFilled means the order was completely filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusCanceled means the order was canceled by the user.
	OrderStatusCanceled OrderStatus = "CANCELED"
	// OrderStatusFailed means the exchange rejected the order. Eligible for retry.
	OrderStatusFailed OrderStatus = "FAILED"
	// OrderStatusKilled means the order exhausted its retries. No further action.
	OrderStatusKilled OrderStatus = "KILLED"
)

// IsTerminal reports whether no further transitions are possible.
// FAILED is not terminal: it signals a transient rejection eligible for retry.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusKilled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus parses exchange status text case-insensitively.
// Some exchanges report "closed" for completely filled orders; that synonym is
// normalized to FILLED here so the data model carries a single terminal state.
func ParseOrderStatus(text string) (OrderStatus, error) {
	switch status := OrderStatus(strings.ToUpper(text)); status {
	case "CLOSED":
		return OrderStatusFilled, nil
	case OrderStatusCreated, OrderStatusOpen, OrderStatusFilled,
		OrderStatusCanceled, OrderStatusFailed, OrderStatusKilled:
		return status, nil
	default:
		return "", errors.Newf(errors.ErrCodeUnknownOrderStatus, "unknown order status %q", text)
	}
}

// OrderKind is the execution kind of an order.
type OrderKind string

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderKindLimit     OrderKind = "limit"
	OrderKindMarket    OrderKind = "market"
	OrderKindStopLimit OrderKind = "stop_limit"

	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType combines kind and side.
type OrderType string

const (
	OrderTypeLimitBuy      OrderType = "LIMIT_BUY"
	OrderTypeLimitSell     OrderType = "LIMIT_SELL"
	OrderTypeMarketBuy     OrderType = "MARKET_BUY"
	OrderTypeMarketSell    OrderType = "MARKET_SELL"
	OrderTypeStopLimitBuy  OrderType = "STOP_LIMIT_BUY"
	OrderTypeStopLimitSell OrderType = "STOP_LIMIT_SELL"
)

// OrderTypeFromKindSide assembles an OrderType from the split kind/side fields
// exchanges report, e.g. ("limit", "buy") -> LIMIT_BUY.
func OrderTypeFromKindSide(kind, side string) (OrderType, error) {
	orderType := OrderType(strings.ToUpper(fmt.Sprintf("%s_%s", kind, side)))
	switch orderType {
	case OrderTypeLimitBuy, OrderTypeLimitSell, OrderTypeMarketBuy,
		OrderTypeMarketSell, OrderTypeStopLimitBuy, OrderTypeStopLimitSell:
		return orderType, nil
	default:
		return "", errors.Newf(errors.ErrCodeUnknownOrderType, "unknown order type %q/%q", kind, side)
	}
}

// Kind returns the execution kind part of the order type.
func (t OrderType) Kind() OrderKind {
	s := string(t)

	return OrderKind(strings.ToLower(s[:strings.LastIndex(s, "_")]))
}

// Side returns the direction part of the order type.
func (t OrderType) Side() OrderSide {
	s := string(t)

	return OrderSide(strings.ToLower(s[strings.LastIndex(s, "_")+1:]))
}

// IsBuy reports whether the order type buys the base currency.
func (t OrderType) IsBuy() bool {
	return t.Side() == OrderSideBuy
}

// IsSell reports whether the order type sells the base currency.
func (t OrderType) IsSell() bool {
	return t.Side() == OrderSideSell
}

// Order is a single buy/sell instruction and its lifecycle state.
//
// An order is created once, mutated only through its transition methods, and
// never deleted: terminal orders are retained for audit and history.
type Order struct {
	// ID is assigned at creation and never reused across the process lifetime.
	ID              string      `yaml:"id" json:"id" validate:"required,uuid"`
	ExchangeID      string      `yaml:"exchange_id" json:"exchange_id" validate:"required"`
	ExchangeOrderID string      `yaml:"exchange_order_id" json:"exchange_order_id"`
	Asset           Asset       `yaml:"asset" json:"asset"`
	Price           float64     `yaml:"price" json:"price" validate:"gte=0"`
	Quantity        float64     `yaml:"quantity" json:"quantity" validate:"gt=0"`
	FilledQuantity  float64     `yaml:"filled_quantity" json:"filled_quantity" validate:"gte=0"`
	Cost            float64     `yaml:"cost" json:"cost" validate:"gte=0"`
	Type            OrderType   `yaml:"order_type" json:"order_type" validate:"required"`
	Status          OrderStatus `yaml:"status" json:"status" validate:"required"`
	CreatedTime     time.Time   `yaml:"created_time" json:"created_time"`
	OpenedTime      *time.Time  `yaml:"opened_time" json:"opened_time"`
	FilledTime      *time.Time  `yaml:"filled_time" json:"filled_time"`
	CanceledTime    *time.Time  `yaml:"canceled_time" json:"canceled_time"`
	Fee             float64     `yaml:"fee" json:"fee" validate:"gte=0"`
	Retries         int         `yaml:"retries" json:"retries" validate:"gte=0"`
}

// NewOrder creates an order in the CREATED state.
func NewOrder(exchangeID string, asset Asset, price, quantity float64, orderType OrderType) *Order {
	return &Order{
		ID:          uuid.NewString(),
		ExchangeID:  exchangeID,
		Asset:       asset,
		Price:       price,
		Quantity:    quantity,
		Type:        orderType,
		Status:      OrderStatusCreated,
		CreatedTime: time.Now().UTC(),
	}
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.FilledQuantity > o.Quantity {
		return errors.Newf(errors.ErrCodeInvalidOrder, "filled quantity %f exceeds quantity %f", o.FilledQuantity, o.Quantity)
	}

	return nil
}

// Open transitions CREATED/FAILED -> OPEN on exchange acknowledgment and
// stores the exchange-assigned order id.
func (o *Order) Open(exchangeOrderID string, t time.Time) error {
	if o.Status != OrderStatusCreated && o.Status != OrderStatusFailed {
		return o.transitionError(OrderStatusOpen)
	}

	o.Status = OrderStatusOpen
	o.ExchangeOrderID = exchangeOrderID
	opened := t
	o.OpenedTime = &opened

	return nil
}

// ApplyFill records reported fill progress on an OPEN order. Filled quantity
// and cost are monotonic: stale reports below the recorded progress are
// ignored. A full fill transitions the order to FILLED.
func (o *Order) ApplyFill(filled, cost float64, t time.Time) error {
	if o.Status != OrderStatusOpen {
		return o.transitionError(OrderStatusFilled)
	}

	if filled > o.Quantity {
		return errors.Newf(errors.ErrCodeInvalidOrder, "fill %f exceeds order quantity %f", filled, o.Quantity)
	}

	if filled < o.FilledQuantity {
		// Stale or out-of-order adapter data. Progress never decreases.
		return nil
	}

	o.FilledQuantity = filled
	if cost > o.Cost {
		o.Cost = cost
	}

	if o.FilledQuantity == o.Quantity {
		o.Status = OrderStatusFilled
		filledAt := t
		o.FilledTime = &filledAt
	}

	return nil
}

// Cancel transitions OPEN/FAILED -> CANCELED. Late fill data arriving after
// cancellation is rejected by the status guard on ApplyFill.
func (o *Order) Cancel(t time.Time) error {
	if o.Status != OrderStatusOpen && o.Status != OrderStatusFailed {
		return o.transitionError(OrderStatusCanceled)
	}

	o.Status = OrderStatusCanceled
	canceled := t
	o.CanceledTime = &canceled

	return nil
}

// Fail transitions CREATED/OPEN/FAILED -> FAILED on adapter rejection or a
// transient error, counting the attempt against the retry ceiling.
func (o *Order) Fail() error {
	if o.Status.IsTerminal() {
		return o.transitionError(OrderStatusFailed)
	}

	o.Status = OrderStatusFailed
	o.Retries++

	return nil
}

// Kill transitions FAILED -> KILLED once retries exceed the ceiling.
func (o *Order) Kill() error {
	if o.Status != OrderStatusFailed {
		return o.transitionError(OrderStatusKilled)
	}

	o.Status = OrderStatusKilled

	return nil
}

// RemainingQuantity is the quantity not yet filled.
func (o *Order) RemainingQuantity() float64 {
	return o.Quantity - o.FilledQuantity
}

func (o *Order) transitionError(to OrderStatus) error {
	return errors.Newf(errors.ErrCodeInvalidTransition, "order %s: invalid transition %s -> %s", o.ID, o.Status, to)
}
