// Package resolver turns a ticker into a StockRecord: a mandatory chart fetch for
// price and history, ordered enrichment for fundamentals, derivation of missing
// ratios, a sector fallback, then assembly into the cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"stockwatch/cache"
	"stockwatch/models"
	"stockwatch/observability"
	"stockwatch/services"
)

// Default retention windows for close series
const (
	DefaultSummaryPoints = 30
	DefaultDetailPoints  = 365
)

// Options tunes a Resolver. Zero values fall back to defaults.
type Options struct {
	Cache            cache.Store
	Breakers         *services.CircuitBreakerRegistry
	Retry            services.RetryConfig
	ProviderTimeout  time.Duration
	SummaryPoints    int
	DetailPoints     int
	BatchConcurrency int
	Now              func() time.Time
}

// Resolver runs the resolution pipeline
type Resolver struct {
	chart         services.ChartProvider
	enrichers     []services.Provider
	cache         cache.Store
	breakers      *services.CircuitBreakerRegistry
	retry         services.RetryConfig
	timeout       time.Duration
	summaryPoints int
	detailPoints  int
	concurrency   int
	budget        time.Duration
	now           func() time.Time
	group         singleflight.Group
}

// New creates a Resolver. enrichers are consulted in order and only fill fields
// that are still missing.
func New(chart services.ChartProvider, enrichers []services.Provider, opts Options) *Resolver {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(cache.DefaultTTL, opts.Now)
	}
	if opts.Breakers == nil {
		opts.Breakers = services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig)
	}
	if opts.Retry.Retryable == nil {
		opts.Retry.Retryable = services.IsTransient
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = services.DefaultTimeout
	}
	if opts.SummaryPoints <= 0 {
		opts.SummaryPoints = DefaultSummaryPoints
	}
	if opts.DetailPoints <= 0 {
		opts.DetailPoints = DefaultDetailPoints
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}

	return &Resolver{
		chart:         chart,
		enrichers:     enrichers,
		cache:         opts.Cache,
		breakers:      opts.Breakers,
		retry:         opts.Retry,
		timeout:       opts.ProviderTimeout,
		summaryPoints: opts.SummaryPoints,
		detailPoints:  opts.DetailPoints,
		concurrency:   opts.BatchConcurrency,
		budget:        flightBudget(opts.ProviderTimeout, opts.Retry, len(enrichers)),
		now:           opts.Now,
	}
}

// flightBudget bounds one shared pipeline run: every primary attempt with its
// backoff plus one call per enricher, each capped by the provider timeout
func flightBudget(timeout time.Duration, retry services.RetryConfig, enrichers int) time.Duration {
	budget := time.Duration(retry.MaxRetries+1+enrichers) * timeout
	backoff := retry.InitialBackoff
	for i := 0; i < retry.MaxRetries; i++ {
		budget += backoff
		backoff *= 2
		if backoff > retry.MaxBackoff {
			backoff = retry.MaxBackoff
		}
	}
	return budget
}

// Providers returns the names of the configured sources in precedence order
func (r *Resolver) Providers() []string {
	names := make([]string, 0, len(r.enrichers)+1)
	names = append(names, r.chart.Name())
	for _, p := range r.enrichers {
		names = append(names, p.Name())
	}
	return names
}

// Breakers exposes the circuit breaker registry for health reporting
func (r *Resolver) Breakers() *services.CircuitBreakerRegistry {
	return r.breakers
}

// Resolve returns the cached record for symbol or resolves it on a miss
func (r *Resolver) Resolve(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, newResolveError(symbol, models.NewFetchError(r.chart.Name(), models.KindNotFound, errors.New("empty symbol")))
	}

	if record, ok := r.cache.Get(ctx, symbol); ok {
		return record, nil
	}
	return r.resolveShared(ctx, symbol)
}

// Refresh resolves symbol without consulting the cache and replaces the entry
func (r *Resolver) Refresh(ctx context.Context, symbol string) (*models.StockRecord, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, newResolveError(symbol, models.NewFetchError(r.chart.Name(), models.KindNotFound, errors.New("empty symbol")))
	}
	return r.resolveShared(ctx, symbol)
}

// resolveShared collapses concurrent misses for one symbol into a single pipeline
// run. The run is detached from any one caller's cancellation and bounded by the
// resolver's own budget; each caller still stops waiting when its context ends.
func (r *Resolver) resolveShared(ctx context.Context, symbol string) (*models.StockRecord, error) {
	ch := r.group.DoChan(symbol, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.budget)
		defer cancel()
		return r.resolve(flightCtx, symbol)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resolve %s: %w", symbol, models.ContextError(r.chart.Name(), ctx.Err()))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.StockRecord), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, symbol string) (*models.StockRecord, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	logger := observability.WithSymbol(symbol)

	facts, err := r.primary(ctx, symbol)
	if err != nil {
		timer.ObserveResolve("failure")
		logger.Warn("primary fetch failed", "provider", r.chart.Name(), "error", err)
		if models.KindOf(err) == models.KindNotFound {
			r.cache.Invalidate(ctx, symbol)
		}
		return nil, newResolveError(symbol, err)
	}

	sources := []string{r.chart.Name()}
	sources = append(sources, r.enrich(ctx, symbol, facts)...)
	deriveRatios(facts)

	record := r.assemble(symbol, facts, sources)
	r.cache.Put(ctx, symbol, record)

	timer.ObserveResolve("success")
	logger.Debug("resolved",
		"price", record.Price.String(),
		"sources", record.Sources,
		"sector", record.Sector)

	return record, nil
}

// primary fetches price and history. Transient failures are retried; an open
// breaker fails fast.
func (r *Resolver) primary(ctx context.Context, symbol string) (*models.Facts, error) {
	var facts *models.Facts
	err := services.WithRetry(ctx, r.retry, func() error {
		f, err := services.WithCircuitBreaker(ctx, r.breakers, r.chart.Name(), func() (*models.Facts, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return r.chart.Fetch(callCtx, symbol)
		})
		if err != nil {
			return err
		}
		facts = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !facts.Price.Valid || !facts.Price.Decimal.IsPositive() {
		return nil, models.NewFetchError(r.chart.Name(), models.KindParseError, fmt.Errorf("no usable price for %s", symbol))
	}
	return facts, nil
}

// enrich walks the strategy list until the fundamentals are complete and returns
// the names of the providers that filled at least one field
func (r *Resolver) enrich(ctx context.Context, symbol string, facts *models.Facts) []string {
	metrics := observability.GetMetrics()
	var contributed []string

	for _, p := range r.enrichers {
		if facts.FundamentalsComplete() || ctx.Err() != nil {
			break
		}

		contribution, err := services.WithCircuitBreaker(ctx, r.breakers, p.Name(), func() (*models.Facts, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return p.Fetch(callCtx, symbol)
		})
		if err != nil {
			observability.WithProvider(p.Name()).Debug("enrichment source failed",
				"symbol", symbol,
				"kind", models.KindOf(err),
				"error", err)
			continue
		}

		filled := facts.Merge(contribution)
		if len(filled) > 0 {
			contributed = append(contributed, p.Name())
			metrics.RecordFieldFills(p.Name(), filled)
			observability.WithProvider(p.Name()).Debug("enrichment filled fields",
				"symbol", symbol,
				"fields", filled)
		}
	}

	return contributed
}

func (r *Resolver) assemble(symbol string, f *models.Facts, sources []string) *models.StockRecord {
	price := f.Price.Decimal
	day, week, month := changes(price, f.History, f.PreviousClose)

	name := f.CompanyName
	if name == "" {
		name = symbol
	}

	sector, inferred := f.Sector, false
	if sector == "" {
		if guess, ok := inferSector(f.CompanyName); ok {
			sector, inferred = guess, true
		} else {
			sector = models.SectorUnknown
		}
	}

	high := high52Week(f.High52Week, f.History, price)
	delta := 0.0
	if high.IsPositive() {
		delta = price.Sub(high).Div(high).Mul(hundred).Round(2).InexactFloat64()
	}

	return &models.StockRecord{
		Symbol:         symbol,
		CompanyName:    name,
		Price:          price,
		Change1D:       day,
		Change1W:       week,
		Change1M:       month,
		Sector:         sector,
		SectorInferred: inferred,
		PERatio:        f.PERatio,
		PEGRatio:       f.PEGRatio,
		EPS:            f.EPS,
		DividendYield:  f.DividendYield,
		High52Week:     high,
		Delta52W:       delta,
		HistoricalData: trim(f.History, r.summaryPoints),
		Sources:        sources,
		FetchedAt:      r.now(),
	}
}

// History returns the detail close series for symbol over rng, trimmed to the
// detail retention window. It does not touch the record cache.
func (r *Resolver) History(ctx context.Context, symbol string, rng models.Range) ([]models.ClosePoint, error) {
	symbol = models.NormalizeSymbol(symbol)

	var facts *models.Facts
	err := services.WithRetry(ctx, r.retry, func() error {
		f, err := services.WithCircuitBreaker(ctx, r.breakers, r.chart.Name(), func() (*models.Facts, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return r.chart.FetchRange(callCtx, symbol, rng)
		})
		if err != nil {
			return err
		}
		facts = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history for %s (%s): %w", symbol, rng, err)
	}

	return trim(facts.History, r.detailPoints), nil
}
