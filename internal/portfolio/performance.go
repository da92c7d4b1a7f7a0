package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is one step's performance measurement.
type Period struct {
	Time       time.Time `yaml:"time" json:"time"`
	TotalValue float64   `yaml:"total_value" json:"total_value"`
	PnL        float64   `yaml:"pnl" json:"pnl"`
	Returns    float64   `yaml:"returns" json:"returns"`
}

// PerformanceTracker accumulates one Period per trading step against the
// starting cash baseline.
type PerformanceTracker struct {
	StartingCash float64  `yaml:"starting_cash" json:"starting_cash"`
	Periods      []Period `yaml:"periods" json:"periods"`
}

// NewPerformanceTracker creates a tracker with the given cash baseline.
func NewPerformanceTracker(startingCash float64) *PerformanceTracker {
	return &PerformanceTracker{StartingCash: startingCash}
}

// Advance records the portfolio's total value for one step.
func (p *PerformanceTracker) Advance(t time.Time, totalValue float64) {
	pnl := decimal.NewFromFloat(totalValue).Sub(decimal.NewFromFloat(p.StartingCash))

	returns := decimal.Zero
	if p.StartingCash != 0 {
		returns = pnl.Div(decimal.NewFromFloat(p.StartingCash))
	}

	pnlValue, _ := pnl.Float64()
	returnsValue, _ := returns.Float64()

	p.Periods = append(p.Periods, Period{
		Time:       t,
		TotalValue: totalValue,
		PnL:        pnlValue,
		Returns:    returnsValue,
	})
}

// PnL returns the latest recorded profit and loss, zero before the first step.
func (p *PerformanceTracker) PnL() float64 {
	if len(p.Periods) == 0 {
		return 0
	}

	return p.Periods[len(p.Periods)-1].PnL
}
