package portfolio

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Amount is one currency's ledger entry. Total always equals Free + Used.
type Amount struct {
	Free  float64 `yaml:"free" json:"free"`
	Used  float64 `yaml:"used" json:"used"`
	Total float64 `yaml:"total" json:"total"`
}

// Balance is the per-currency free/used/total ledger.
//
// The designated cash currency exists from construction. Currencies are added
// explicitly, and Update is the sole mutator: it replaces free/used atomically
// and recomputes total. There is deliberately no delta-based entry point.
type Balance struct {
	cash    types.Currency
	amounts map[types.Currency]Amount
}

// NewBalance creates a ledger holding startingCash of the cash currency.
func NewBalance(cash types.Currency, startingCash float64) *Balance {
	return &Balance{
		cash: cash,
		amounts: map[types.Currency]Amount{
			cash: {Free: startingCash, Used: 0, Total: startingCash},
		},
	}
}

// NewBalanceFromAmounts seeds a ledger from configured free/used pairs.
// Totals are recomputed; the cash currency is added with a zero entry when the
// seed omits it.
func NewBalanceFromAmounts(cash types.Currency, amounts map[types.Currency]Amount) *Balance {
	b := &Balance{
		cash:    cash,
		amounts: map[types.Currency]Amount{cash: {}},
	}
	for currency, amount := range amounts {
		b.amounts[currency] = Amount{
			Free:  amount.Free,
			Used:  amount.Used,
			Total: sum(amount.Free, amount.Used),
		}
	}

	return b
}

// CashCurrency returns the designated cash currency.
func (b *Balance) CashCurrency() types.Currency {
	return b.cash
}

// Currencies lists all held currencies in deterministic order.
func (b *Balance) Currencies() []types.Currency {
	currencies := make([]types.Currency, 0, len(b.amounts))
	for currency := range b.amounts {
		currencies = append(currencies, currency)
	}

	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	return currencies
}

// Has reports whether the currency is present in the ledger.
func (b *Balance) Has(currency types.Currency) bool {
	_, ok := b.amounts[currency]

	return ok
}

// Get returns the currency's ledger entry.
func (b *Balance) Get(currency types.Currency) (Amount, error) {
	amount, ok := b.amounts[currency]
	if !ok {
		return Amount{}, errors.Newf(errors.ErrCodeUnknownCurrency, "currency %s not in balance", currency)
	}

	return amount, nil
}

// AddCurrency adds a zero-valued entry. Adding a currency that is already
// present is a programmer error and leaves the ledger untouched.
func (b *Balance) AddCurrency(currency types.Currency) error {
	if _, ok := b.amounts[currency]; ok {
		return errors.Newf(errors.ErrCodeDuplicateCurrency, "currency %s already in balance", currency)
	}

	b.amounts[currency] = Amount{}

	return nil
}

// Update atomically replaces the currency's free/used pair and recomputes
// total. Callers compute the full new pair; partial mutation is not offered.
func (b *Balance) Update(currency types.Currency, free, used float64) error {
	if _, ok := b.amounts[currency]; !ok {
		return errors.Newf(errors.ErrCodeUnknownCurrency, "currency %s not in balance", currency)
	}

	b.amounts[currency] = Amount{
		Free:  free,
		Used:  used,
		Total: sum(free, used),
	}

	return nil
}

// TotalValue converts every currency's total into the cash currency using the
// supplied per-symbol rates, e.g. rates["ETH/BTC"] for ETH against cash BTC.
func (b *Balance) TotalValue(cash types.Currency, rates map[string]float64) (float64, error) {
	value := decimal.Zero

	for currency, amount := range b.amounts {
		if currency == cash {
			value = value.Add(decimal.NewFromFloat(amount.Total))

			continue
		}

		symbol := types.NewAsset(currency, cash).Symbol()
		rate, ok := rates[symbol]
		if !ok {
			return 0, errors.Newf(errors.ErrCodeMissingRate, "no rate quoted for %s", symbol)
		}

		value = value.Add(decimal.NewFromFloat(amount.Total).Mul(decimal.NewFromFloat(rate)))
	}

	result, _ := value.Float64()

	return result, nil
}

// Clone returns a deep copy, used to build persisted snapshots without
// aliasing the live ledger.
func (b *Balance) Clone() *Balance {
	amounts := make(map[types.Currency]Amount, len(b.amounts))
	for currency, amount := range b.amounts {
		amounts[currency] = amount
	}

	return &Balance{cash: b.cash, amounts: amounts}
}

type balanceSnapshot struct {
	CashCurrency types.Currency            `yaml:"cash_currency" json:"cash_currency"`
	Amounts      map[types.Currency]Amount `yaml:"amounts" json:"amounts"`
}

// MarshalJSON implements json.Marshaler.
func (b *Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(balanceSnapshot{CashCurrency: b.cash, Amounts: b.amounts})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var snapshot balanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	b.cash = snapshot.CashCurrency
	b.amounts = snapshot.Amounts
	if b.amounts == nil {
		b.amounts = map[types.Currency]Amount{b.cash: {}}
	}

	return nil
}

func sum(a, b float64) float64 {
	result, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()

	return result
}
