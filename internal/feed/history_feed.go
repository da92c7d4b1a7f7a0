package feed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// HistoryFeed replays OHLCV bars from a CSV file through an in-memory DuckDB
// view, ordered by time and optionally clipped to a [start, end) window.
type HistoryFeed struct {
	bars   []types.MarketData
	cursor int
	hist   history
	log    *logger.Logger
}

// NewHistoryFeed loads the bars for the given assets and window.
func NewHistoryFeed(
	path string,
	assets []types.Asset,
	timeframe types.Timeframe,
	start, end optional.Option[time.Time],
	log *logger.Logger,
) (*HistoryFeed, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedUnavailable, "failed to open duckdb", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf(`CREATE VIEW bars AS SELECT * FROM read_csv_auto('%s')`, path)); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFeedUnavailable, err, "failed to read market data from %s", path)
	}

	symbols := make([]string, 0, len(assets))
	for _, asset := range assets {
		symbols = append(symbols, asset.Symbol())
	}

	query := sq.Select("time", "symbol", "open", "high", "low", "close", "volume").
		From("bars").
		Where(sq.Eq{"symbol": symbols}).
		OrderBy("time ASC")

	if start.IsSome() {
		query = query.Where(sq.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(sq.Lt{"time": end.Unwrap()})
	}

	statement, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedUnavailable, "failed to build bar query", err)
	}

	rows, err := db.Query(statement, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedUnavailable, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.MarketData

	for rows.Next() {
		var bar types.MarketData
		if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFeedUnavailable, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedUnavailable, "error iterating bars", err)
	}

	log.Info("loaded historical feed",
		zap.String("path", path),
		zap.Strings("symbols", symbols),
		zap.String("timeframe", timeframe.String()),
		zap.Int("bars", len(bars)),
	)

	return &HistoryFeed{
		bars: bars,
		hist: newHistory(),
		log:  log,
	}, nil
}

// Initialize implements Feed. Historical replay needs no live source.
func (f *HistoryFeed) Initialize(BarSource) error {
	return nil
}

// Next implements Feed.
func (f *HistoryFeed) Next(ctx context.Context) (types.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return types.MarketData{}, err
	}

	if f.cursor >= len(f.bars) {
		return types.MarketData{}, ErrEndOfData
	}

	bar := f.bars[f.cursor]
	f.cursor++
	f.hist.record(bar)

	return bar, nil
}

// History implements Feed.
func (f *HistoryFeed) History(tMinus int) []types.MarketData {
	return f.hist.tail(tMinus)
}

// Latest implements Feed.
func (f *HistoryFeed) Latest(asset types.Asset) (types.MarketData, bool) {
	return f.hist.latestFor(asset)
}

// Count returns the number of bars the feed will produce in total.
func (f *HistoryFeed) Count() int {
	return len(f.bars)
}
