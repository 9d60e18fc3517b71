// Package parser turns fetched documents into trending items. Listing
// pages go through selector chains; JSON sources go through a field map.
package parser

import (
	"errors"

	"github.com/IshaanNene/TrendGoat/internal/source"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var (
	errUnsupportedLink = errors.New("link is not an absolute http(s) URL")
	errNoBase          = errors.New("relative link without a base origin")
)

// Parser extracts one outcome per candidate item from a fetched response.
type Parser interface {
	// Parse returns outcomes in the source's native order. Item-level
	// problems are reported as failure outcomes; the error is reserved
	// for problems with the whole response or the source definition.
	Parse(resp *types.Response, spec *source.Spec) ([]types.ParseOutcome, error)
}
