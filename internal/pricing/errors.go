package pricing

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSymbolNotFound is returned by a source that has no data for a symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrMalformedResponse is returned when a source reply cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// FetchKind classifies a failed lookup.
type FetchKind string

const (
	KindTimeout   FetchKind = "timeout"
	KindNetwork   FetchKind = "network"
	KindMalformed FetchKind = "malformed"
	KindNotFound  FetchKind = "not_found"
	KindCanceled  FetchKind = "canceled"
)

// FetchError reports a failed quote lookup for a single symbol.
type FetchError struct {
	Symbol string
	Kind   FetchKind
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the lookup was abandoned because it ran too long.
func (e *FetchError) Timeout() bool {
	return e.Kind == KindTimeout
}

func newFetchError(symbol string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Symbol: symbol, Kind: classify(err), Cause: err}
}

func classify(err error) FetchKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrSymbolNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	default:
		return KindNetwork
	}
}
