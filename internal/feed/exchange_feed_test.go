package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// stubBarSource counts pulls and can fail a fixed number of times first.
type stubBarSource struct {
	failures int
	pulls    int
	bar      types.MarketData
}

func (s *stubBarSource) FetchBar(_ context.Context, asset types.Asset, _ types.Timeframe) (types.MarketData, error) {
	s.pulls++
	if s.pulls <= s.failures {
		return types.MarketData{}, errors.New(errors.ErrCodeAdapterUnavailable, "connection reset")
	}

	bar := s.bar
	bar.Symbol = asset.Symbol()

	return bar, nil
}

type ExchangeFeedTestSuite struct {
	suite.Suite
	log    *logger.Logger
	assets []types.Asset
}

func TestExchangeFeedSuite(t *testing.T) {
	suite.Run(t, new(ExchangeFeedTestSuite))
}

func (suite *ExchangeFeedTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	suite.log = log
	suite.assets = []types.Asset{
		types.NewAsset(types.ETH, types.BTC),
		types.NewAsset(types.LTC, types.BTC),
	}
}

func (suite *ExchangeFeedTestSuite) TestRequiresSource() {
	feed := NewExchangeFeed(suite.assets, types.TimeframeOneMinute, 3, suite.log)

	err := feed.Initialize(nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFeedUnavailable))

	_, err = feed.Next(context.Background())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFeedUnavailable))
}

func (suite *ExchangeFeedTestSuite) TestRoundRobinOverAssets() {
	source := &stubBarSource{bar: types.MarketData{Time: time.Now(), Close: 0.05}}
	feed := NewExchangeFeed(suite.assets, types.TimeframeOneMinute, 3, suite.log)
	suite.Require().NoError(feed.Initialize(source))

	first, err := feed.Next(context.Background())
	suite.Require().NoError(err)
	suite.Equal("ETH/BTC", first.Symbol)

	second, err := feed.Next(context.Background())
	suite.Require().NoError(err)
	suite.Equal("LTC/BTC", second.Symbol)

	latest, ok := feed.Latest(suite.assets[0])
	suite.True(ok)
	suite.Equal("ETH/BTC", latest.Symbol)
	suite.Len(feed.History(10), 2)
}

func (suite *ExchangeFeedTestSuite) TestTransientFailureIsRetried() {
	source := &stubBarSource{failures: 2, bar: types.MarketData{Time: time.Now(), Close: 0.05}}
	feed := NewExchangeFeed(suite.assets, types.TimeframeOneMinute, 3, suite.log)
	suite.Require().NoError(feed.Initialize(source))

	bar, err := feed.Next(context.Background())
	suite.NoError(err)
	suite.Equal("ETH/BTC", bar.Symbol)
	suite.Equal(3, source.pulls)
}

func (suite *ExchangeFeedTestSuite) TestExhaustedRetriesSurfaceAsFeedUnavailable() {
	source := &stubBarSource{failures: 100}
	feed := NewExchangeFeed(suite.assets, types.TimeframeOneMinute, 2, suite.log)
	suite.Require().NoError(feed.Initialize(source))

	_, err := feed.Next(context.Background())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFeedUnavailable))
}
