package record

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/tradestate/pkg/errors"
)

const recordFileName = "record.json"

// FileStore persists snapshots as a JSON file. The write goes to a temp file
// first and is committed by rename, so a reader only ever sees a complete
// snapshot.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at the experiment directory.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to create record directory %s", root)
	}

	return &FileStore{root: root}, nil
}

// Save implements Store.
func (s *FileStore) Save(snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode snapshot", err)
	}

	target := filepath.Join(s.root, recordFileName)
	temp := target + ".tmp"

	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to write snapshot", err)
	}

	if err := os.Rename(temp, target); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to commit snapshot", err)
	}

	return nil
}

// Load implements Store.
func (s *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.root, recordFileName))
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrCodeSnapshotNotFound, "no snapshot in %s", s.root)
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to read snapshot", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to decode snapshot", err)
	}

	return &snapshot, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
