package models

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a data source could not produce a value
type FailureKind string

const (
	KindNotFound    FailureKind = "not_found"
	KindTimeout     FailureKind = "timeout"
	KindHTTPError   FailureKind = "http_error"
	KindParseError  FailureKind = "parse_error"
	KindNoPriceData FailureKind = "no_price_data"
	KindCanceled    FailureKind = "canceled"
	KindUnknown     FailureKind = "unknown"
)

// Sentinel errors matched by errors.Is against a FetchError of the same kind
var (
	ErrNotFound    = errors.New("symbol not found")
	ErrTimeout     = errors.New("provider timed out")
	ErrHTTP        = errors.New("provider returned an error status")
	ErrParse       = errors.New("unexpected provider payload")
	ErrNoPriceData = errors.New("no price data")
	ErrCanceled    = errors.New("request canceled by caller")
)

// ContextError classifies a context error. An expired deadline is a timeout;
// any other cancellation is KindCanceled, which is never retried.
func ContextError(provider string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewFetchError(provider, KindTimeout, err)
	}
	return NewFetchError(provider, KindCanceled, err)
}

// FetchError is the only error shape a provider client returns
type FetchError struct {
	Provider string
	Kind     FailureKind
	Status   int // HTTP status when Kind is KindHTTPError
	Err      error
}

// NewFetchError creates a FetchError for the given provider and kind
func NewFetchError(provider string, kind FailureKind, err error) *FetchError {
	return &FetchError{Provider: provider, Kind: kind, Err: err}
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) and friends match on kind
func (e *FetchError) Is(target error) bool {
	return sentinelFor(e.Kind) == target
}

// Transient reports whether a retry could plausibly succeed
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindHTTPError:
		return e.Status == 0 || e.Status == 429 || e.Status >= 500
	default:
		return false
	}
}

func sentinelFor(kind FailureKind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindTimeout:
		return ErrTimeout
	case KindHTTPError:
		return ErrHTTP
	case KindParseError:
		return ErrParse
	case KindNoPriceData:
		return ErrNoPriceData
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// KindOf classifies an arbitrary error chain. The outermost classified error wins,
// so a resolution failure reports NoPriceData even when its cause was NotFound.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}

	type kinded interface{ FailureKind() FailureKind }
	var k kinded
	if errors.As(err, &k) {
		return k.FailureKind()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoPriceData):
		return KindNoPriceData
	}
	return KindUnknown
}

// FailureKind implements the classification hook used by KindOf
func (e *FetchError) FailureKind() FailureKind {
	return e.Kind
}
