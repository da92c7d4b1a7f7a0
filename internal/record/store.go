package record

import (
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

// Store kinds accepted by NewStore.
const (
	StoreKindFile   = "file"
	StoreKindDuckDB = "duckdb"
)

// NewStore creates a snapshot store of the given kind rooted at root.
func NewStore(kind, root string) (Store, error) {
	switch kind {
	case StoreKindFile:
		return NewFileStore(root)
	case StoreKindDuckDB:
		return NewDuckDBStore(root)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "unknown store kind %q", kind)
	}
}
