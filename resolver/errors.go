package resolver

import (
	"fmt"

	"stockwatch/models"
)

// ResolveError is the terminal failure for one symbol: no source produced a usable price.
// Cause keeps the primary fetch failure so callers can tell a timeout from an unknown ticker.
type ResolveError struct {
	Symbol string
	Kind   models.FailureKind
	Cause  error
}

func newResolveError(symbol string, cause error) *ResolveError {
	return &ResolveError{Symbol: symbol, Kind: models.KindNoPriceData, Cause: cause}
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: no price data: %v", e.Symbol, e.Cause)
}

func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// Is matches models.ErrNoPriceData
func (e *ResolveError) Is(target error) bool {
	return target == models.ErrNoPriceData
}

// FailureKind implements the classification hook used by models.KindOf
func (e *ResolveError) FailureKind() models.FailureKind {
	return e.Kind
}

// CauseKind classifies the underlying primary fetch failure
func (e *ResolveError) CauseKind() models.FailureKind {
	if e.Cause == nil {
		return models.KindUnknown
	}
	return models.KindOf(e.Cause)
}
