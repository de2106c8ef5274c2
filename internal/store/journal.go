package store

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"

	"github.com/ethereum/go-ethereum/common"

	"github.com/minertopia/rollout/internal/domain"
	"github.com/minertopia/rollout/internal/infra/filesystem/json"
)

// Journal remembers which wiring calls were confirmed, keyed by WireCall.ID.
// Setup calls are not idempotent on chain, so a resumed run consults it before
// re-issuing one. It never holds addresses.
type Journal struct {
	path    string
	entries map[string]common.Hash
	reader  reader
	writer  writer
}

// LoadJournal reads the journal at path; a missing file is an empty journal.
func LoadJournal(path string) (*Journal, error) {
	j := &Journal{
		path:    path,
		entries: make(map[string]common.Hash),
		reader:  json.NewReader(),
		writer:  json.NewWriter(),
	}

	if err := j.reader.ReadJSON(path, &j.entries); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return j, nil
		case errors.Is(err, json.ErrMalformed):
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreCorruption, err)
		default:
			return nil, err
		}
	}
	if j.entries == nil {
		j.entries = make(map[string]common.Hash)
	}

	return j, nil
}

// Done returns the confirming transaction of id, if it was recorded.
func (j *Journal) Done(id string) (common.Hash, bool) {
	hash, ok := j.entries[id]
	return hash, ok
}

// Mark records id as confirmed by tx and persists the journal.
func (j *Journal) Mark(id string, tx common.Hash) error {
	next := maps.Clone(j.entries)
	next[id] = tx
	if err := j.writer.WriteJSON(j.path, next); err != nil {
		return fmt.Errorf("failed to persist wiring journal: %w", err)
	}
	j.entries = next
	return nil
}

// Entries returns a copy of the recorded calls.
func (j *Journal) Entries() map[string]common.Hash {
	return maps.Clone(j.entries)
}
