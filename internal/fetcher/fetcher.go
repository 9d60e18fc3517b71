// Package fetcher retrieves source documents over HTTP or through a
// headless browser.
package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Set holds the available fetchers keyed by type.
type Set map[string]Fetcher

// NewSet indexes fetchers by their Type.
func NewSet(fetchers ...Fetcher) Set {
	s := make(Set, len(fetchers))
	for _, f := range fetchers {
		s[f.Type()] = f
	}
	return s
}

// For returns the fetcher of the given type.
func (s Set) For(fetcherType string) (Fetcher, error) {
	f, ok := s[fetcherType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrNoFetcher, fetcherType)
	}
	return f, nil
}

// Close closes every fetcher in the set.
func (s Set) Close() error {
	var errs []error
	for _, f := range s {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s fetcher: %w", f.Type(), err))
		}
	}
	return errors.Join(errs...)
}
