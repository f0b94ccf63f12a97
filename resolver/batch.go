package resolver

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"stockwatch/models"
	"stockwatch/observability"
)

// DefaultBatchConcurrency bounds how many symbols resolve at once
const DefaultBatchConcurrency = 8

// Failure describes one symbol a batch could not resolve
type Failure struct {
	Symbol string             `json:"symbol"`
	Kind   models.FailureKind `json:"kind"`
	Cause  models.FailureKind `json:"cause,omitempty"`
	Error  string             `json:"error"`
}

// BatchResult holds the records that resolved, in input order, plus the failures
type BatchResult struct {
	Records   []*models.StockRecord `json:"stocks"`
	Failures  []Failure             `json:"failures"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
}

// ResolveBatch resolves every symbol independently. One symbol failing never
// affects its siblings and the batch itself never fails.
func (r *Resolver) ResolveBatch(ctx context.Context, symbols []string) *BatchResult {
	records := make([]*models.StockRecord, len(symbols))
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			records[i], errs[i] = r.Resolve(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		Records:  make([]*models.StockRecord, 0, len(symbols)),
		Failures: []Failure{},
	}
	for i, symbol := range symbols {
		if err := errs[i]; err != nil {
			failure := Failure{
				Symbol: models.NormalizeSymbol(symbol),
				Kind:   models.KindOf(err),
				Error:  err.Error(),
			}
			var re *ResolveError
			if errors.As(err, &re) {
				failure.Cause = re.CauseKind()
			}
			result.Failures = append(result.Failures, failure)
			continue
		}
		result.Records = append(result.Records, records[i])
	}
	result.Succeeded = len(result.Records)
	result.Failed = len(result.Failures)

	observability.GetMetrics().RecordBatch(result.Succeeded, result.Failed)
	if result.Failed > 0 {
		observability.Info("batch resolved with failures",
			"requested", len(symbols),
			"succeeded", result.Succeeded,
			"failed", result.Failed)
	}

	return result
}
