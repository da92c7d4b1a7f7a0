// Package record is the persistence boundary of a trading run. A Snapshot is
// the atomic unit: Save commits a complete snapshot, Load returns a complete
// previously-committed snapshot or fails — callers never observe a torn read.
package record

import (
	"encoding/json"
	"time"

	"github.com/rxtech-lab/tradestate/internal/portfolio"
	"github.com/rxtech-lab/tradestate/internal/types"
)

// Snapshot captures the state of one run after a step.
type Snapshot struct {
	Experiment  string                        `json:"experiment"`
	SavedAt     time.Time                     `json:"saved_at"`
	Config      json.RawMessage               `json:"config"`
	Balance     *portfolio.Balance            `json:"balance"`
	Orders      []*types.Order                `json:"orders"`
	Performance *portfolio.PerformanceTracker `json:"performance"`
}

// Store persists and retrieves snapshots.
type Store interface {
	// Save atomically commits the snapshot, replacing the previous one.
	Save(snapshot *Snapshot) error
	// Load returns the last committed snapshot.
	Load() (*Snapshot, error)
	// Close releases the store's resources.
	Close() error
}
