package types

import (
	"time"

	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Timeframe is the bar interval of a feed.
type Timeframe string

const (
	TimeframeOneMinute      Timeframe = "1m"
	TimeframeFiveMinutes    Timeframe = "5m"
	TimeframeFifteenMinutes Timeframe = "15m"
	TimeframeThirtyMinutes  Timeframe = "30m"
	TimeframeOneHour        Timeframe = "1h"
	TimeframeFourHours      Timeframe = "4h"
	TimeframeOneDay         Timeframe = "1d"
)

// ParseTimeframe validates timeframe text against the supported set.
func ParseTimeframe(text string) (Timeframe, error) {
	switch Timeframe(text) {
	case TimeframeOneMinute, TimeframeFiveMinutes, TimeframeFifteenMinutes,
		TimeframeThirtyMinutes, TimeframeOneHour, TimeframeFourHours, TimeframeOneDay:
		return Timeframe(text), nil
	default:
		return "", errors.Newf(errors.ErrCodeParse, "invalid timeframe %q", text)
	}
}

// Duration returns the wall-clock length of one bar.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeOneMinute:
		return time.Minute
	case TimeframeFiveMinutes:
		return 5 * time.Minute
	case TimeframeFifteenMinutes:
		return 15 * time.Minute
	case TimeframeThirtyMinutes:
		return 30 * time.Minute
	case TimeframeOneHour:
		return time.Hour
	case TimeframeFourHours:
		return 4 * time.Hour
	case TimeframeOneDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

func (t Timeframe) String() string {
	return string(t)
}
