package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrDimMismatch signals an embedding dimension mismatch.
	ErrDimMismatch = errors.New("embedding dimension mismatch")
	// ErrBackendUnavailable signals a transient storage failure, safe to retry.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEcoregionNotFound signals that no ecoregion matched.
	ErrEcoregionNotFound = errors.New("ecoregion not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// DimMismatchError wraps ErrDimMismatch with the observed and expected sizes.
type DimMismatchError struct {
	Got  int
	Want int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, index expects %d", ErrDimMismatch.Error(), e.Got, e.Want)
}

func (e *DimMismatchError) Unwrap() error { return ErrDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(got, want int) error {
	return &DimMismatchError{Got: got, Want: want}
}
