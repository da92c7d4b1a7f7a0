package types

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Asset identifies a tradable market as a base/quote currency pair.
//
// Base is the currency being traded, Quote is the currency its price is
// displayed in. A BUY order for Base/Quote buys Base and pays in Quote.
type Asset struct {
	Base  Currency `yaml:"base" json:"base"`
	Quote Currency `yaml:"quote" json:"quote"`
}

// NewAsset creates an Asset from its two currencies.
func NewAsset(base, quote Currency) Asset {
	return Asset{Base: base, Quote: quote}
}

// ParseAsset parses "BASE/QUOTE" or, when no separator is present, splits a
// 6-character code into two 3-character currencies. Any other separatorless
// format is rejected.
func ParseAsset(symbol string) (Asset, error) {
	if strings.Contains(symbol, "/") {
		parts := strings.Split(symbol, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Asset{}, errors.Newf(errors.ErrCodeParse, "invalid symbol %q", symbol)
		}

		return Asset{Base: Currency(parts[0]), Quote: Currency(parts[1])}, nil
	}

	if len(symbol) != 6 {
		return Asset{}, errors.Newf(errors.ErrCodeParse, "invalid symbol %q: expected BASE/QUOTE or a 6-character code", symbol)
	}

	return Asset{Base: Currency(symbol[:3]), Quote: Currency(symbol[3:])}, nil
}

// Symbol renders the asset as "BASE/QUOTE".
func (a Asset) Symbol() string {
	return fmt.Sprintf("%s/%s", a.Base, a.Quote)
}

// ReverseSymbol renders the related reversed market as "QUOTE/BASE".
func (a Asset) ReverseSymbol() string {
	return fmt.Sprintf("%s/%s", a.Quote, a.Base)
}

// Reverse returns the asset with base and quote swapped.
func (a Asset) Reverse() Asset {
	return Asset{Base: a.Quote, Quote: a.Base}
}

// ID renders a filesystem-safe identifier, "BASE_QUOTE".
func (a Asset) ID() string {
	return fmt.Sprintf("%s_%s", a.Base, a.Quote)
}

// Equal reports structural equality on (base, quote).
func (a Asset) Equal(other Asset) bool {
	return a.Base == other.Base && a.Quote == other.Quote
}

func (a Asset) String() string {
	return a.Symbol()
}
