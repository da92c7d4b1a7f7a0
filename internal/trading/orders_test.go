package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

type OrderBuilderTestSuite struct {
	suite.Suite
	ctx   *Context
	asset types.Asset
}

func TestOrderBuilderSuite(t *testing.T) {
	suite.Run(t, new(OrderBuilderTestSuite))
}

func (suite *OrderBuilderTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	config := DefaultConfig(ModeSimulation)
	config.Root = suite.T().TempDir()
	config.CashCurrency = "BTC"
	config.Feed.Symbols = []string{"ETH/BTC"}

	ctx, err := NewContext(config, ModeSimulation, log)
	suite.Require().NoError(err)

	suite.ctx = ctx
	suite.asset = types.NewAsset(types.ETH, types.BTC)
}

func (suite *OrderBuilderTestSuite) TearDownTest() {
	suite.NoError(suite.ctx.Close())
}

func (suite *OrderBuilderTestSuite) TestLimitBuyRegistersPendingOrder() {
	order, err := suite.ctx.LimitBuy(suite.asset, 0.05, 0.1)
	suite.Require().NoError(err)

	suite.Equal(types.OrderStatusCreated, order.Status)
	suite.Equal(types.OrderTypeLimitBuy, order.Type)
	suite.Equal("paper", order.ExchangeID)

	pending := suite.ctx.Portfolio().PendingOrders()
	suite.Require().Len(pending, 1)
	suite.Equal(order.ID, pending[0].ID)
}

func (suite *OrderBuilderTestSuite) TestLimitSell() {
	order, err := suite.ctx.LimitSell(suite.asset, 0.06, 0.2)
	suite.Require().NoError(err)
	suite.Equal(types.OrderTypeLimitSell, order.Type)
}

func (suite *OrderBuilderTestSuite) TestInvalidOrderRejected() {
	_, err := suite.ctx.LimitBuy(suite.asset, 0.05, 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
	suite.Empty(suite.ctx.Portfolio().Orders())
}

func (suite *OrderBuilderTestSuite) TestMarketOrderNeedsReferencePrice() {
	_, err := suite.ctx.MarketBuy(suite.asset, 0.1)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFeedUnavailable))
}

func (suite *OrderBuilderTestSuite) TestMarketOrderUsesLatestClose() {
	feed := suite.ctx.Feed()

	source := &staticBarSource{close: 0.055}
	suite.Require().NoError(feed.Initialize(source))

	_, err := feed.Next(context.Background())
	suite.Require().NoError(err)

	order, err := suite.ctx.MarketBuy(suite.asset, 0.1)
	suite.Require().NoError(err)
	suite.Equal(0.055, order.Price)
	suite.Equal(types.OrderTypeMarketBuy, order.Type)
}

type staticBarSource struct {
	close float64
}

func (s *staticBarSource) FetchBar(_ context.Context, asset types.Asset, _ types.Timeframe) (types.MarketData, error) {
	return types.MarketData{
		Symbol: asset.Symbol(),
		Close:  s.close,
		Open:   s.close,
		High:   s.close,
		Low:    s.close,
		Volume: 1,
	}, nil
}
