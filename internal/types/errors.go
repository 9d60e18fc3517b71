package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure taxonomy. Every Failure and SourceError
// unwraps to exactly one of them.
var (
	ErrStructuralMiss    = errors.New("structural miss")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceTimeout     = errors.New("source timed out")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrUnknownSource     = errors.New("unknown source")
	ErrNoFetcher         = errors.New("no fetcher available for source")
)

// ErrorKind classifies a failure for reporting.
type ErrorKind string

const (
	KindStructuralMiss    ErrorKind = "structural_miss"
	KindSourceUnavailable ErrorKind = "source_unavailable"
	KindSourceTimeout     ErrorKind = "source_timeout"
	KindMalformedPayload  ErrorKind = "malformed_payload"
)

// Sentinel returns the sentinel error matching the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindStructuralMiss:
		return ErrStructuralMiss
	case KindSourceTimeout:
		return ErrSourceTimeout
	case KindMalformedPayload:
		return ErrMalformedPayload
	default:
		return ErrSourceUnavailable
	}
}

// Reason is a machine-stable code explaining an item-level failure.
type Reason string

const (
	ReasonMissingTitleLink Reason = "missing_title_link"
	ReasonEmptyTitle       Reason = "empty_title"
	ReasonMissingURL       Reason = "missing_url"
	ReasonInvalidURL       Reason = "invalid_url"
	ReasonMissingTitle     Reason = "missing_title"
	ReasonNotAnObject      Reason = "not_an_object"
)

// Failure is an item-level extraction failure. The batch it belongs to
// carries on regardless.
type Failure struct {
	SourceID       string    `json:"source_id"`
	ContainerIndex int       `json:"container_index"`
	Reason         Reason    `json:"reason"`
	Kind           ErrorKind `json:"kind"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: item %d: %s", f.SourceID, f.ContainerIndex, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Kind.Sentinel() }

// SourceError is a source-level failure: the source produced no items,
// other sources are unaffected.
type SourceError struct {
	SourceID string
	Kind     ErrorKind
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.SourceID, e.Kind, e.Err)
}

// Is matches the sentinel of the error's kind as well as the wrapped error.
func (e *SourceError) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError builds a SourceError of the given kind.
func NewSourceError(sourceID string, kind ErrorKind, err error) *SourceError {
	return &SourceError{SourceID: sourceID, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, falling back to
// KindSourceUnavailable for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	switch {
	case errors.Is(err, ErrSourceTimeout):
		return KindSourceTimeout
	case errors.Is(err, ErrMalformedPayload):
		return KindMalformedPayload
	case errors.Is(err, ErrStructuralMiss):
		return KindStructuralMiss
	}
	return KindSourceUnavailable
}

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// StorageError wraps errors that occur during export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the processing pipeline.
type PipelineError struct {
	Stage string
	Item  *TrendItem
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
