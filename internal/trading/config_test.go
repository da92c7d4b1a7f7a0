package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

const validConfigYAML = `
experiment: my-run
root: experiments
store: file
cash_currency: BTC
starting_cash: 1.0
balances:
  ETH: 0.5
feed:
  name: history
  path: data/bars.csv
  symbols:
    - ETH/BTC
  timeframe: 1m
  start: 2017-01-12T00:00:00Z
  end: 2017-01-13T00:00:00Z
  max_attempts: 5
exchange:
  exchange_id: paper
max_order_retries: 10
`

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParseValidConfig() {
	config, err := ParseConfig([]byte(validConfigYAML))
	suite.Require().NoError(err)

	suite.Equal("my-run", config.Experiment)
	suite.Equal("file", config.Store)
	suite.Equal("BTC", config.CashCurrency)
	suite.Equal(0.5, config.Balances["ETH"])
	suite.Equal(10, config.MaxOrderRetries)

	suite.True(config.Feed.Start.IsSome())
	suite.Equal(time.Date(2017, 1, 12, 0, 0, 0, 0, time.UTC), config.Feed.Start.Unwrap())
	suite.True(config.Feed.End.IsSome())

	assets, err := config.Assets()
	suite.Require().NoError(err)
	suite.Require().Len(assets, 1)
	suite.True(assets[0].Equal(types.NewAsset(types.ETH, types.BTC)))

	timeframe, err := config.Timeframe()
	suite.NoError(err)
	suite.Equal(types.TimeframeOneMinute, timeframe)
}

func (suite *ConfigTestSuite) TestOptionalTimesDefaultToNone() {
	config, err := ParseConfig([]byte(`
experiment: my-run
root: experiments
store: file
cash_currency: BTC
starting_cash: 1.0
feed:
  name: history
  path: data/bars.csv
  symbols: [ETH/BTC]
  timeframe: 1m
  max_attempts: 5
exchange:
  exchange_id: paper
`))
	suite.Require().NoError(err)
	suite.True(config.Feed.Start.IsNone())
	suite.True(config.Feed.End.IsNone())
}

func (suite *ConfigTestSuite) TestValidationNamesOffendingField() {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{
			name:   "missing experiment",
			mutate: func(c *Config) { c.Experiment = "" },
			field:  "Experiment",
		},
		{
			name:   "unknown store",
			mutate: func(c *Config) { c.Store = "redis" },
			field:  "Store",
		},
		{
			name:   "negative starting cash",
			mutate: func(c *Config) { c.StartingCash = -1 },
			field:  "StartingCash",
		},
		{
			name:   "unknown feed",
			mutate: func(c *Config) { c.Feed.Name = "telepathy" },
			field:  "Feed.Name",
		},
		{
			name:   "history feed without path",
			mutate: func(c *Config) { c.Feed.Path = "" },
			field:  "Feed.Path",
		},
		{
			name:   "no symbols",
			mutate: func(c *Config) { c.Feed.Symbols = nil },
			field:  "Feed.Symbols",
		},
		{
			name:   "unknown exchange",
			mutate: func(c *Config) { c.Exchange.ExchangeID = "mtgox" },
			field:  "Exchange.ExchangeID",
		},
		{
			name:   "live exchange without credentials",
			mutate: func(c *Config) { c.Exchange.ExchangeID = "binance" },
			field:  "Exchange.APIKey",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			config, err := ParseConfig([]byte(validConfigYAML))
			suite.Require().NoError(err)

			tt.mutate(&config)

			err = config.Validate()
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
			suite.Contains(err.Error(), tt.field)
		})
	}
}

func (suite *ConfigTestSuite) TestBadTimeframeRejected() {
	config, err := ParseConfig([]byte(validConfigYAML))
	suite.Require().NoError(err)

	config.Feed.Timeframe = "3m"
	err = config.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func (suite *ConfigTestSuite) TestBadSymbolRejected() {
	config, err := ParseConfig([]byte(validConfigYAML))
	suite.Require().NoError(err)

	config.Feed.Symbols = []string{"ETHX"}
	err = config.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func (suite *ConfigTestSuite) TestInvalidYAML() {
	_, err := ParseConfig([]byte("feed: ["))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func (suite *ConfigTestSuite) TestParseTradingMode() {
	mode, err := ParseTradingMode("backtest")
	suite.NoError(err)
	suite.Equal(ModeBacktest, mode)

	_, err = ParseTradingMode("dryrun")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func (suite *ConfigTestSuite) TestDefaultConfig() {
	config := DefaultConfig(ModeSimulation)
	suite.NoError(config.Validate())
	suite.Equal("exchange", config.Feed.Name)
	suite.Equal("paper", config.Exchange.ExchangeID)

	backtest := DefaultConfig(ModeBacktest)
	suite.Equal("history", backtest.Feed.Name)

	live := DefaultConfig(ModeLive)
	suite.Equal("binance", live.Exchange.ExchangeID)
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	var config Config

	schema, err := config.GenerateSchemaJSON()
	suite.NoError(err)
	suite.Contains(schema, "cash_currency")
	suite.Contains(schema, "max_order_retries")
}
