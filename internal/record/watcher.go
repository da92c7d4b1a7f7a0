package record

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/tradestate/internal/logger"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Watcher periodically reloads the last committed snapshot from a store. It
// never writes, so it can run alongside a live trading loop; a monitoring
// surface reads whatever snapshot was last loaded successfully.
type Watcher struct {
	store    Store
	interval time.Duration
	log      *logger.Logger

	mu     sync.RWMutex
	latest *Snapshot
}

// NewWatcher creates a watcher polling the store at the given interval.
func NewWatcher(store Store, interval time.Duration, log *logger.Logger) *Watcher {
	return &Watcher{
		store:    store,
		interval: interval,
		log:      log,
	}
}

// Run polls the store until the context is canceled. Load failures are logged
// and the previous snapshot is kept; a snapshot that has not been committed
// yet is not an error worth reporting.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.reload()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

// Latest returns the most recently loaded snapshot, or nil if none has been
// committed yet.
func (w *Watcher) Latest() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.latest
}

func (w *Watcher) reload() {
	snapshot, err := w.store.Load()
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeSnapshotNotFound) {
			w.log.Warn("failed to reload snapshot", zap.Error(err))
		}

		return
	}

	w.mu.Lock()
	w.latest = snapshot
	w.mu.Unlock()
}
