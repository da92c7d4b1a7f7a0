package feed

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// ExchangeFeed polls a live bar source, one asset per step, pacing full passes
// to the timeframe cadence. Transient pull failures are retried with
// exponential backoff; an exhausted budget surfaces as FeedUnavailable, which
// is fatal to the run.
type ExchangeFeed struct {
	source      BarSource
	assets      []types.Asset
	timeframe   types.Timeframe
	maxAttempts uint64
	cursor      int
	cycleStart  time.Time
	hist        history
	log         *logger.Logger
}

// NewExchangeFeed creates a live feed for the given assets and cadence.
func NewExchangeFeed(assets []types.Asset, timeframe types.Timeframe, maxAttempts uint64, log *logger.Logger) *ExchangeFeed {
	return &ExchangeFeed{
		assets:      assets,
		timeframe:   timeframe,
		maxAttempts: maxAttempts,
		hist:        newHistory(),
		log:         log,
	}
}

// Initialize implements Feed.
func (f *ExchangeFeed) Initialize(source BarSource) error {
	if source == nil {
		return errors.New(errors.ErrCodeFeedUnavailable, "exchange feed requires a bar source")
	}

	f.source = source

	return nil
}

// Next implements Feed.
func (f *ExchangeFeed) Next(ctx context.Context) (types.MarketData, error) {
	if f.source == nil {
		return types.MarketData{}, errors.New(errors.ErrCodeFeedUnavailable, "exchange feed not initialized")
	}

	if f.cursor == 0 {
		if err := f.waitForCycle(ctx); err != nil {
			return types.MarketData{}, err
		}

		f.cycleStart = time.Now()
	}

	asset := f.assets[f.cursor]
	f.cursor = (f.cursor + 1) % len(f.assets)

	var bar types.MarketData

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxAttempts), ctx)

	err := backoff.Retry(func() error {
		fetched, fetchErr := f.source.FetchBar(ctx, asset, f.timeframe)
		if fetchErr != nil {
			f.log.Warn("feed pull failed, retrying",
				zap.String("symbol", asset.Symbol()),
				zap.Error(fetchErr),
			)

			return fetchErr
		}

		bar = fetched

		return nil
	}, policy)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeFeedUnavailable, err,
			"feed pull for %s failed after retries", asset.Symbol())
	}

	f.hist.record(bar)

	return bar, nil
}

// History implements Feed.
func (f *ExchangeFeed) History(tMinus int) []types.MarketData {
	return f.hist.tail(tMinus)
}

// Latest implements Feed.
func (f *ExchangeFeed) Latest(asset types.Asset) (types.MarketData, bool) {
	return f.hist.latestFor(asset)
}

// waitForCycle blocks until the next timeframe boundary, honoring cancellation.
func (f *ExchangeFeed) waitForCycle(ctx context.Context) error {
	if f.cycleStart.IsZero() {
		return nil
	}

	wait := f.timeframe.Duration() - time.Since(f.cycleStart)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
