// Package storage exports the items of one run to files.
package storage

import (
	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Storage is the interface for all export backends.
type Storage interface {
	// Store writes a batch of items.
	Store(items []types.TrendItem) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string

	// Path returns the file the backend writes to.
	Path() string
}

// Export stores items through s and closes it. The close error is
// reported when the store itself succeeded.
func Export(s Storage, items []types.TrendItem) error {
	err := s.Store(items)
	if cerr := s.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}
