package types

import (
	"time"

	"github.com/google/uuid"
)

// RawOrder is the untyped order payload reported by an exchange adapter.
type RawOrder struct {
	ID     string  `yaml:"id" json:"id"`
	Symbol string  `yaml:"symbol" json:"symbol"`
	Type   string  `yaml:"type" json:"type"`
	Side   string  `yaml:"side" json:"side"`
	Price  float64 `yaml:"price" json:"price"`
	Amount float64 `yaml:"amount" json:"amount"`
	Filled float64 `yaml:"filled" json:"filled"`
	Status string  `yaml:"status" json:"status"`
	Fee    float64 `yaml:"fee" json:"fee"`
}

// OrderFromRaw constructs an Order from adapter-reported data. The symbol,
// type/side pair and status must all parse; nothing is silently defaulted.
func OrderFromRaw(exchangeID string, raw RawOrder) (*Order, error) {
	asset, err := ParseAsset(raw.Symbol)
	if err != nil {
		return nil, err
	}

	orderType, err := OrderTypeFromKindSide(raw.Type, raw.Side)
	if err != nil {
		return nil, err
	}

	status, err := ParseOrderStatus(raw.Status)
	if err != nil {
		return nil, err
	}

	return &Order{
		ID:              uuid.NewString(),
		ExchangeID:      exchangeID,
		ExchangeOrderID: raw.ID,
		Asset:           asset,
		Price:           raw.Price,
		Quantity:        raw.Amount,
		FilledQuantity:  raw.Filled,
		Status:          status,
		Type:            orderType,
		CreatedTime:     time.Now().UTC(),
		Fee:             raw.Fee,
	}, nil
}

// Raw renders the order in the adapter payload shape.
func (o *Order) Raw() RawOrder {
	return RawOrder{
		ID:     o.ExchangeOrderID,
		Symbol: o.Asset.Symbol(),
		Type:   string(o.Type.Kind()),
		Side:   string(o.Type.Side()),
		Price:  o.Price,
		Amount: o.Quantity,
		Filled: o.FilledQuantity,
		Status: string(o.Status),
		Fee:    o.Fee,
	}
}
