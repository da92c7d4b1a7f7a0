package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PerformanceTestSuite struct {
	suite.Suite
}

func TestPerformanceSuite(t *testing.T) {
	suite.Run(t, new(PerformanceTestSuite))
}

func (suite *PerformanceTestSuite) TestAdvance() {
	tracker := NewPerformanceTracker(1000)
	now := time.Date(2017, 1, 12, 0, 0, 0, 0, time.UTC)

	suite.Zero(tracker.PnL())

	tracker.Advance(now, 1100)
	tracker.Advance(now.Add(time.Minute), 900)

	suite.Require().Len(tracker.Periods, 2)
	suite.InDelta(100, tracker.Periods[0].PnL, 1e-9)
	suite.InDelta(0.1, tracker.Periods[0].Returns, 1e-9)
	suite.InDelta(-100, tracker.PnL(), 1e-9)
}

func (suite *PerformanceTestSuite) TestZeroBaselineAvoidsDivision() {
	tracker := NewPerformanceTracker(0)
	tracker.Advance(time.Now(), 50)

	suite.InDelta(50, tracker.PnL(), 1e-9)
	suite.Zero(tracker.Periods[0].Returns)
}
