package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// stubProvider serves canned bars keyed by symbol.
type stubProvider struct {
	bars map[string]types.MarketData
}

func (s *stubProvider) Latest(asset types.Asset) (types.MarketData, bool) {
	bar, ok := s.bars[asset.Symbol()]

	return bar, ok
}

type PaperExchangeTestSuite struct {
	suite.Suite
	provider *stubProvider
	paper    *PaperExchange
	asset    types.Asset
	ctx      context.Context
}

func TestPaperExchangeSuite(t *testing.T) {
	suite.Run(t, new(PaperExchangeTestSuite))
}

func (suite *PaperExchangeTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	suite.provider = &stubProvider{bars: make(map[string]types.MarketData)}
	suite.paper = NewPaperExchange(suite.provider, log)
	suite.asset = types.NewAsset(types.ETH, types.BTC)
	suite.ctx = context.Background()
}

func (suite *PaperExchangeTestSuite) setBar(low, high, close float64) {
	suite.provider.bars[suite.asset.Symbol()] = types.MarketData{
		Symbol: suite.asset.Symbol(),
		Time:   time.Date(2017, 1, 12, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 100,
	}
}

func (suite *PaperExchangeTestSuite) TestSubmitAcknowledges() {
	order := types.NewOrder(PaperExchangeID, suite.asset, 0.05, 0.1, types.OrderTypeLimitBuy)

	raw, err := suite.paper.SubmitOrder(suite.ctx, order)
	suite.NoError(err)
	suite.NotEmpty(raw.ID)
	suite.Equal(string(types.OrderStatusOpen), raw.Status)
	suite.Zero(raw.Filled)
}

func (suite *PaperExchangeTestSuite) TestSubmitRejectsNonPositiveOrders() {
	tests := []struct {
		name     string
		price    float64
		quantity float64
	}{
		{name: "zero quantity", price: 0.05, quantity: 0},
		{name: "negative quantity", price: 0.05, quantity: -1},
		{name: "zero price limit", price: 0, quantity: 0.1},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			order := types.NewOrder(PaperExchangeID, suite.asset, tt.price, tt.quantity, types.OrderTypeLimitBuy)

			_, err := suite.paper.SubmitOrder(suite.ctx, order)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeAdapterRejected))
		})
	}
}

func (suite *PaperExchangeTestSuite) TestLimitBuyFillsWhenBarTradesThrough() {
	order := types.NewOrder(PaperExchangeID, suite.asset, 0.05, 0.1, types.OrderTypeLimitBuy)
	raw, err := suite.paper.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	// Bar stays above the limit: no fill.
	suite.setBar(0.06, 0.07, 0.065)
	fetched, err := suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal(string(types.OrderStatusOpen), fetched.Status)

	// Bar trades through the limit: full fill, reported as "closed".
	suite.setBar(0.045, 0.07, 0.05)
	fetched, err = suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal("closed", fetched.Status)
	suite.Equal(0.1, fetched.Filled)

	status, err := types.ParseOrderStatus(fetched.Status)
	suite.NoError(err)
	suite.Equal(types.OrderStatusFilled, status)
}

func (suite *PaperExchangeTestSuite) TestLimitSellFillsAtOrAboveLimit() {
	order := types.NewOrder(PaperExchangeID, suite.asset, 0.06, 0.1, types.OrderTypeLimitSell)
	raw, err := suite.paper.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	suite.setBar(0.04, 0.05, 0.045)
	fetched, err := suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal(string(types.OrderStatusOpen), fetched.Status)

	suite.setBar(0.05, 0.065, 0.06)
	fetched, err = suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal("closed", fetched.Status)
}

func (suite *PaperExchangeTestSuite) TestMarketOrderFillsAtClose() {
	order := types.NewOrder(PaperExchangeID, suite.asset, 0.05, 0.1, types.OrderTypeMarketBuy)
	raw, err := suite.paper.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	suite.setBar(0.04, 0.07, 0.055)
	fetched, err := suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal("closed", fetched.Status)
	suite.Equal(0.055, fetched.Price)
}

func (suite *PaperExchangeTestSuite) TestFetchWithoutBarKeepsOrderOpen() {
	order := types.NewOrder(PaperExchangeID, suite.asset, 0.05, 0.1, types.OrderTypeLimitBuy)
	raw, err := suite.paper.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	fetched, err := suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal(string(types.OrderStatusOpen), fetched.Status)
}

func (suite *PaperExchangeTestSuite) TestCancelOrder() {
	order := types.NewOrder(PaperExchangeID, suite.asset, 0.05, 0.1, types.OrderTypeLimitBuy)
	raw, err := suite.paper.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	order.ExchangeOrderID = raw.ID
	canceled, err := suite.paper.CancelOrder(suite.ctx, order)
	suite.NoError(err)
	suite.Equal(string(types.OrderStatusCanceled), canceled.Status)

	// A canceled order no longer fills.
	suite.setBar(0.01, 0.07, 0.05)
	fetched, err := suite.paper.FetchOrder(suite.ctx, raw.ID, suite.asset)
	suite.NoError(err)
	suite.Equal(string(types.OrderStatusCanceled), fetched.Status)
}

func (suite *PaperExchangeTestSuite) TestUnknownOrder() {
	_, err := suite.paper.FetchOrder(suite.ctx, "missing", suite.asset)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeOrderNotFound))

	order := types.NewOrder(PaperExchangeID, suite.asset, 0.05, 0.1, types.OrderTypeLimitBuy)
	order.ExchangeOrderID = "missing"
	_, err = suite.paper.CancelOrder(suite.ctx, order)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeOrderNotFound))
}
