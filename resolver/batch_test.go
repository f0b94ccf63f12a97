package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stockwatch/models"
	"stockwatch/services"
)

func TestResolveBatch_PartialFailure(t *testing.T) {
	chart := &fakeChart{facts: map[string]*models.Facts{
		"AAPL": chartFacts("AAPL", "Apple Inc.", 190, 180, 185, 190),
	}}
	r := newTestResolver(chart)

	result := r.ResolveBatch(context.Background(), []string{"AAPL", "ZZZZINVALID"})

	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("Succeeded/Failed = %d/%d, want 1/1", result.Succeeded, result.Failed)
	}
	if len(result.Records) != 1 || result.Records[0].Symbol != "AAPL" {
		t.Errorf("Records = %v, want [AAPL]", result.Records)
	}

	failure := result.Failures[0]
	if failure.Symbol != "ZZZZINVALID" {
		t.Errorf("Failure.Symbol = %v, want ZZZZINVALID", failure.Symbol)
	}
	if failure.Kind != models.KindNoPriceData {
		t.Errorf("Failure.Kind = %v, want %v", failure.Kind, models.KindNoPriceData)
	}
	if failure.Cause != models.KindNotFound {
		t.Errorf("Failure.Cause = %v, want %v", failure.Cause, models.KindNotFound)
	}
	if failure.Error == "" {
		t.Error("Failure.Error should carry the message")
	}
}

func TestResolveBatch_PreservesInputOrder(t *testing.T) {
	chart := &fakeChart{facts: map[string]*models.Facts{
		"AAPL": chartFacts("AAPL", "Apple Inc.", 190, 190),
		"MSFT": chartFacts("MSFT", "Microsoft Corporation", 410, 410),
		"KO":   chartFacts("KO", "The Coca-Cola Company", 60, 60),
		"NVDA": chartFacts("NVDA", "NVIDIA Corporation", 900, 900),
	}}
	r := New(chart, nil, Options{BatchConcurrency: 2})

	symbols := []string{"nvda", "KO", "aapl", "MSFT"}
	result := r.ResolveBatch(context.Background(), symbols)

	want := []string{"NVDA", "KO", "AAPL", "MSFT"}
	if len(result.Records) != len(want) {
		t.Fatalf("len(Records) = %d, want %d", len(result.Records), len(want))
	}
	for i, record := range result.Records {
		if record.Symbol != want[i] {
			t.Errorf("Records[%d].Symbol = %v, want %v", i, record.Symbol, want[i])
		}
	}
	if result.Failures == nil {
		t.Error("Failures should be an empty slice, not nil")
	}
}

func TestResolveBatch_Empty(t *testing.T) {
	r := newTestResolver(&fakeChart{})

	result := r.ResolveBatch(context.Background(), nil)
	if result.Succeeded != 0 || result.Failed != 0 {
		t.Errorf("Succeeded/Failed = %d/%d, want 0/0", result.Succeeded, result.Failed)
	}
	if result.Records == nil {
		t.Error("Records should be an empty slice, not nil")
	}
}

type countingChart struct {
	fakeChart
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *countingChart) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return c.fakeChart.Fetch(ctx, symbol)
}

func TestResolveBatch_BoundedConcurrency(t *testing.T) {
	facts := map[string]*models.Facts{}
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for _, s := range symbols {
		facts[s] = chartFacts(s, s, 10, 10)
	}
	chart := &countingChart{fakeChart: fakeChart{facts: facts}}
	r := New(chart, nil, Options{BatchConcurrency: 3})

	result := r.ResolveBatch(context.Background(), symbols)

	if result.Succeeded != len(symbols) {
		t.Errorf("Succeeded = %d, want %d", result.Succeeded, len(symbols))
	}
	if got := chart.maxSeen.Load(); got > 3 {
		t.Errorf("max concurrent fetches = %d, want <= 3", got)
	}
}

func TestResolveBatch_TimeoutFailureKind(t *testing.T) {
	chart := &fakeChart{errs: []error{
		models.NewFetchError(services.ProviderChart, models.KindTimeout, errors.New("deadline")),
	}}
	r := New(chart, nil, Options{})

	result := r.ResolveBatch(context.Background(), []string{"SLOW"})
	if result.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", result.Failed)
	}
	if result.Failures[0].Cause != models.KindTimeout {
		t.Errorf("Cause = %v, want %v", result.Failures[0].Cause, models.KindTimeout)
	}
}
