package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFetchError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewFetchError("yahoo-chart", KindNotFound, errors.New("no such ticker")))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("did not expect errors.Is(err, ErrTimeout)")
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %v, want %v", KindOf(err), KindNotFound)
	}
}

func TestFetchError_Transient(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want bool
	}{
		{"timeout", &FetchError{Kind: KindTimeout}, true},
		{"server error", &FetchError{Kind: KindHTTPError, Status: 503}, true},
		{"rate limited", &FetchError{Kind: KindHTTPError, Status: 429}, true},
		{"client error", &FetchError{Kind: KindHTTPError, Status: 403}, false},
		{"not found", &FetchError{Kind: KindNotFound}, false},
		{"parse error", &FetchError{Kind: KindParseError}, false},
		{"canceled", &FetchError{Kind: KindCanceled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Transient(); got != tt.want {
				t.Errorf("Transient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"plain", errors.New("boom"), KindUnknown},
		{"sentinel", fmt.Errorf("x: %w", ErrNoPriceData), KindNoPriceData},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), KindCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextError(t *testing.T) {
	deadline := ContextError("chart", context.DeadlineExceeded)
	if deadline.Kind != KindTimeout || !errors.Is(deadline, ErrTimeout) {
		t.Errorf("deadline classified as %v, want %v", deadline.Kind, KindTimeout)
	}

	canceled := ContextError("chart", context.Canceled)
	if canceled.Kind != KindCanceled || !errors.Is(canceled, ErrCanceled) {
		t.Errorf("cancellation classified as %v, want %v", canceled.Kind, KindCanceled)
	}
	if canceled.Transient() {
		t.Error("cancellation should not be retried")
	}
	if !errors.Is(canceled, context.Canceled) {
		t.Error("expected the context error to stay in the chain")
	}
}
