package exchange

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// BinanceExchangeID is the venue id of the live Binance adapter.
const BinanceExchangeID = "binance"

// maxNetworkRetries bounds the exponential backoff applied to each call.
const maxNetworkRetries = 5

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetOrderService interface for querying a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// KlinesService interface for fetching candlesticks.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewCancelOrderService() CancelOrderService
	NewGetOrderService() GetOrderService
	NewKlinesService() KlinesService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceExchange is the live venue adapter. Every network call runs inside a
// bounded exponential backoff; rejections are permanent and never retried.
type BinanceExchange struct {
	client BinanceClient
	log    *logger.Logger
}

// NewBinanceExchange creates a live adapter from API credentials.
func NewBinanceExchange(apiKey, secretKey string, log *logger.Logger) *BinanceExchange {
	return &BinanceExchange{
		client: &realBinanceClient{client: binance.NewClient(apiKey, secretKey)},
		log:    log,
	}
}

// NewBinanceExchangeWithClient creates an adapter with an injected client.
func NewBinanceExchangeWithClient(client BinanceClient, log *logger.Logger) *BinanceExchange {
	return &BinanceExchange{client: client, log: log}
}

// ID implements Adapter.
func (e *BinanceExchange) ID() string {
	return BinanceExchangeID
}

// SubmitOrder implements Adapter.
func (e *BinanceExchange) SubmitOrder(ctx context.Context, order *types.Order) (types.RawOrder, error) {
	service := e.client.NewCreateOrderService().
		Symbol(binanceSymbol(order.Asset)).
		Side(binanceSide(order.Type)).
		Type(binanceOrderType(order.Type)).
		Quantity(formatQuantity(order.Quantity))

	if order.Type.Kind() == types.OrderKindLimit {
		service = service.Price(formatQuantity(order.Price)).TimeInForce(binance.TimeInForceTypeGTC)
	}

	var response *binance.CreateOrderResponse

	err := e.retry(ctx, "create order", func() error {
		var doErr error
		response, doErr = service.Do(ctx)

		return doErr
	})
	if err != nil {
		return types.RawOrder{}, err
	}

	return types.RawOrder{
		ID:     strconv.FormatInt(response.OrderID, 10),
		Symbol: order.Asset.Symbol(),
		Type:   string(order.Type.Kind()),
		Side:   string(order.Type.Side()),
		Price:  order.Price,
		Amount: order.Quantity,
		Filled: parseFloat(response.ExecutedQuantity),
		Status: normalizeBinanceStatus(response.Status),
	}, nil
}

// CancelOrder implements Adapter.
func (e *BinanceExchange) CancelOrder(ctx context.Context, order *types.Order) (types.RawOrder, error) {
	orderID, err := strconv.ParseInt(order.ExchangeOrderID, 10, 64)
	if err != nil {
		return types.RawOrder{}, errors.Wrapf(errors.ErrCodeParse, err,
			"invalid binance order id %q", order.ExchangeOrderID)
	}

	var response *binance.CancelOrderResponse

	err = e.retry(ctx, "cancel order", func() error {
		var doErr error
		response, doErr = e.client.NewCancelOrderService().
			Symbol(binanceSymbol(order.Asset)).
			OrderID(orderID).
			Do(ctx)

		return doErr
	})
	if err != nil {
		return types.RawOrder{}, err
	}

	raw := order.Raw()
	raw.Filled = parseFloat(response.ExecutedQuantity)
	raw.Status = normalizeBinanceStatus(response.Status)

	return raw, nil
}

// FetchOrder implements Adapter.
func (e *BinanceExchange) FetchOrder(ctx context.Context, exchangeOrderID string, asset types.Asset) (types.RawOrder, error) {
	orderID, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return types.RawOrder{}, errors.Wrapf(errors.ErrCodeParse, err,
			"invalid binance order id %q", exchangeOrderID)
	}

	var response *binance.Order

	err = e.retry(ctx, "fetch order", func() error {
		var doErr error
		response, doErr = e.client.NewGetOrderService().
			Symbol(binanceSymbol(asset)).
			OrderID(orderID).
			Do(ctx)

		return doErr
	})
	if err != nil {
		return types.RawOrder{}, err
	}

	return types.RawOrder{
		ID:     exchangeOrderID,
		Symbol: asset.Symbol(),
		Type:   normalizeBinanceKind(response.Type),
		Side:   normalizeBinanceSide(response.Side),
		Price:  parseFloat(response.Price),
		Amount: parseFloat(response.OrigQuantity),
		Filled: parseFloat(response.ExecutedQuantity),
		Status: normalizeBinanceStatus(response.Status),
	}, nil
}

// FetchBar returns the latest closed candlestick for the asset, used by the
// live feed.
func (e *BinanceExchange) FetchBar(ctx context.Context, asset types.Asset, timeframe types.Timeframe) (types.MarketData, error) {
	var klines []*binance.Kline

	err := e.retry(ctx, "fetch klines", func() error {
		var doErr error
		klines, doErr = e.client.NewKlinesService().
			Symbol(binanceSymbol(asset)).
			Interval(string(timeframe)).
			Limit(1).
			Do(ctx)

		return doErr
	})
	if err != nil {
		return types.MarketData{}, err
	}

	if len(klines) == 0 {
		return types.MarketData{}, errors.Newf(errors.ErrCodeAdapterUnavailable,
			"no candlesticks returned for %s", asset.Symbol())
	}

	kline := klines[len(klines)-1]

	return types.MarketData{
		Symbol: asset.Symbol(),
		Time:   unixMillis(kline.OpenTime),
		Open:   parseFloat(kline.Open),
		High:   parseFloat(kline.High),
		Low:    parseFloat(kline.Low),
		Close:  parseFloat(kline.Close),
		Volume: parseFloat(kline.Volume),
	}, nil
}

// retry runs the call under bounded exponential backoff. Binance API errors
// are order rejections and surface immediately; transport errors are retried.
func (e *BinanceExchange) retry(ctx context.Context, operation string, call func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxNetworkRetries), ctx)

	err := backoff.Retry(func() error {
		callErr := call()
		if callErr == nil {
			return nil
		}

		if common.IsAPIError(callErr) {
			return backoff.Permanent(callErr)
		}

		e.log.Warn("binance call failed, retrying",
			zap.String("operation", operation),
			zap.Error(callErr),
		)

		return callErr
	}, policy)
	if err == nil {
		return nil
	}

	if common.IsAPIError(err) {
		return errors.Wrapf(errors.ErrCodeAdapterRejected, err, "binance rejected %s", operation)
	}

	return errors.Wrapf(errors.ErrCodeAdapterUnavailable, err, "binance %s failed after retries", operation)
}
