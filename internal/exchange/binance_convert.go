package exchange

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/tradestate/internal/types"
)

// binanceSymbol renders the asset in Binance's concatenated form, "ETHBTC".
func binanceSymbol(asset types.Asset) string {
	return fmt.Sprintf("%s%s", asset.Base, asset.Quote)
}

func binanceSide(orderType types.OrderType) binance.SideType {
	if orderType.IsBuy() {
		return binance.SideTypeBuy
	}

	return binance.SideTypeSell
}

func binanceOrderType(orderType types.OrderType) binance.OrderType {
	if orderType.Kind() == types.OrderKindMarket {
		return binance.OrderTypeMarket
	}

	return binance.OrderTypeLimit
}

// normalizeBinanceStatus maps Binance status strings onto the order status
// vocabulary understood by ParseOrderStatus.
func normalizeBinanceStatus(status binance.OrderStatusType) string {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return string(types.OrderStatusOpen)
	case binance.OrderStatusTypeFilled:
		return string(types.OrderStatusFilled)
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel:
		return string(types.OrderStatusCanceled)
	default:
		// REJECTED, EXPIRED and anything unexpected count as rejections.
		return string(types.OrderStatusFailed)
	}
}

func normalizeBinanceKind(orderType binance.OrderType) string {
	if orderType == binance.OrderTypeMarket {
		return string(types.OrderKindMarket)
	}

	return string(types.OrderKindLimit)
}

func normalizeBinanceSide(side binance.SideType) string {
	return strings.ToLower(string(side))
}

func parseFloat(text string) float64 {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}

	return value
}

func formatQuantity(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func unixMillis(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}
