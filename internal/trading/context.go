package trading

import (
	"encoding/json"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/exchange"
	"github.com/rxtech-lab/tradestate/internal/feed"
	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/portfolio"
	"github.com/rxtech-lab/tradestate/internal/record"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Context owns the collaborators of one trading run: the feed that produces
// bars, the exchange that executes orders, the portfolio that accounts for
// them, and the store that persists snapshots. All state mutation happens on
// the step loop goroutine; nothing here is safe for concurrent use.
type Context struct {
	config    Config
	mode      TradingMode
	assets    []types.Asset
	timeframe types.Timeframe

	feed      feed.Feed
	exchange  exchange.Adapter
	portfolio *portfolio.Portfolio
	store     record.Store
	log       *logger.Logger
}

// NewContext resolves the configuration into a ready-to-run context.
func NewContext(config Config, mode TradingMode, log *logger.Logger) (*Context, error) {
	assets, err := config.Assets()
	if err != nil {
		return nil, err
	}

	timeframe, err := config.Timeframe()
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		config:    config,
		mode:      mode,
		assets:    assets,
		timeframe: timeframe,
		log:       log,
	}

	if err := ctx.resolveFeed(); err != nil {
		return nil, err
	}

	if err := ctx.resolveExchange(); err != nil {
		return nil, err
	}

	if err := ctx.resolvePortfolio(); err != nil {
		return nil, err
	}

	if err := ctx.resolveStore(); err != nil {
		return nil, err
	}

	log.Info("context ready",
		zap.String("experiment", config.Experiment),
		zap.String("mode", string(mode)),
		zap.String("feed", config.Feed.Name),
		zap.String("exchange", config.Exchange.ExchangeID),
	)

	return ctx, nil
}

func (c *Context) resolveFeed() error {
	switch c.config.Feed.Name {
	case "history":
		historical, err := feed.NewHistoryFeed(
			c.config.Feed.Path, c.assets, c.timeframe,
			c.config.Feed.Start, c.config.Feed.End, c.log)
		if err != nil {
			return err
		}

		c.feed = historical

		return nil
	case "exchange":
		c.feed = feed.NewExchangeFeed(c.assets, c.timeframe, c.config.Feed.MaxAttempts, c.log)

		return nil
	default:
		return errors.Newf(errors.ErrCodeInvalidConfig, "unknown feed %q", c.config.Feed.Name)
	}
}

func (c *Context) resolveExchange() error {
	switch c.config.Exchange.ExchangeID {
	case exchange.PaperExchangeID:
		c.exchange = exchange.NewPaperExchange(c, c.log)

		return c.feed.Initialize(c.barSource())
	case exchange.BinanceExchangeID:
		binance := exchange.NewBinanceExchange(c.config.Exchange.APIKey, c.config.Exchange.SecretKey, c.log)
		c.exchange = binance

		return c.feed.Initialize(binance)
	default:
		return errors.Newf(errors.ErrCodeUnknownExchange, "unknown exchange %q", c.config.Exchange.ExchangeID)
	}
}

// barSource returns the live bar source matching the mode. Backtests replay a
// file and need none; simulation pulls real bars while executing on paper.
func (c *Context) barSource() feed.BarSource {
	if c.mode == ModeBacktest {
		return nil
	}

	return exchange.NewBinanceExchange(c.config.Exchange.APIKey, c.config.Exchange.SecretKey, c.log)
}

func (c *Context) resolvePortfolio() error {
	cash := types.Currency(c.config.CashCurrency)

	amounts := map[types.Currency]portfolio.Amount{
		cash: {Free: c.config.StartingCash},
	}
	for currency, free := range c.config.Balances {
		if types.Currency(currency) == cash {
			continue
		}

		amounts[types.Currency(currency)] = portfolio.Amount{Free: free}
	}

	balance := portfolio.NewBalanceFromAmounts(cash, amounts)
	c.portfolio = portfolio.NewPortfolio(balance, portfolio.NewPerformanceTracker(c.config.StartingCash))

	return nil
}

func (c *Context) resolveStore() error {
	store, err := record.NewStore(c.config.Store, filepath.Join(c.config.Root, c.config.Experiment))
	if err != nil {
		return err
	}

	c.store = store

	return nil
}

// Portfolio returns the run's portfolio.
func (c *Context) Portfolio() *portfolio.Portfolio {
	return c.portfolio
}

// Feed returns the run's market data feed.
func (c *Context) Feed() feed.Feed {
	return c.feed
}

// Exchange returns the run's execution adapter.
func (c *Context) Exchange() exchange.Adapter {
	return c.exchange
}

// Store returns the run's snapshot store.
func (c *Context) Store() record.Store {
	return c.store
}

// Latest implements exchange.MarketDataProvider, backing the paper exchange
// with the feed's most recent bars.
func (c *Context) Latest(asset types.Asset) (types.MarketData, bool) {
	return c.feed.Latest(asset)
}

// Snapshot captures the current run state for persistence.
func (c *Context) Snapshot(at types.MarketData) (*record.Snapshot, error) {
	configJSON, err := json.Marshal(c.config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode config", err)
	}

	return &record.Snapshot{
		Experiment:  c.config.Experiment,
		SavedAt:     at.Time,
		Config:      configJSON,
		Balance:     c.portfolio.Balance().Clone(),
		Orders:      c.portfolio.Orders(),
		Performance: c.portfolio.Performance(),
	}, nil
}

// Close releases the context's resources.
func (c *Context) Close() error {
	return c.store.Close()
}
