package record

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradestate/internal/logger"
)

type WatcherTestSuite struct {
	suite.Suite
	log   *logger.Logger
	store *FileStore
}

func TestWatcherSuite(t *testing.T) {
	suite.Run(t, new(WatcherTestSuite))
}

func (suite *WatcherTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.log = log

	store, err := NewFileStore(suite.T().TempDir())
	suite.Require().NoError(err)
	suite.store = store
}

func (suite *WatcherTestSuite) TestLatestIsNilBeforeFirstCommit() {
	watcher := NewWatcher(suite.store, 10*time.Millisecond, suite.log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	suite.Nil(watcher.Latest())

	cancel()
	<-done
}

func (suite *WatcherTestSuite) TestPicksUpCommittedSnapshot() {
	watcher := NewWatcher(suite.store, 10*time.Millisecond, suite.log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Run(ctx)

	suite.Require().NoError(suite.store.Save(testSnapshot(&suite.Suite)))

	suite.Eventually(func() bool {
		latest := watcher.Latest()

		return latest != nil && latest.Experiment == "test-run"
	}, time.Second, 10*time.Millisecond)
}

func (suite *WatcherTestSuite) TestKeepsLastGoodSnapshotAcrossReloads() {
	watcher := NewWatcher(suite.store, 10*time.Millisecond, suite.log)
	suite.Require().NoError(suite.store.Save(testSnapshot(&suite.Suite)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watcher.Run(ctx)

	suite.Eventually(func() bool {
		return watcher.Latest() != nil
	}, time.Second, 10*time.Millisecond)

	first := watcher.Latest()

	updated := testSnapshot(&suite.Suite)
	updated.SavedAt = first.SavedAt.Add(time.Minute)
	suite.Require().NoError(suite.store.Save(updated))

	suite.Eventually(func() bool {
		latest := watcher.Latest()

		return latest != nil && latest.SavedAt.After(first.SavedAt)
	}, time.Second, 10*time.Millisecond)
}
