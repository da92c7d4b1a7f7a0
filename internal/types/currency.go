package types

// Currency is an exchange-listed currency code, e.g. "BTC".
type Currency string

const (
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	LTC  Currency = "LTC"
	XRP  Currency = "XRP"
	USD  Currency = "USD"
	USDT Currency = "USDT"
	EUR  Currency = "EUR"
)

func (c Currency) String() string {
	return string(c)
}
