package services

import (
	"context"

	"stockwatch/models"
	"stockwatch/normalize"
)

// Provider is one source of stock facts. Implementations never retry and
// return *models.FetchError on failure.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*models.Facts, error)
}

// ChartProvider is the primary price source, with range-aware access for detail views
type ChartProvider interface {
	Provider
	FetchRange(ctx context.Context, symbol string, r models.Range) (*models.Facts, error)
	FetchChart(ctx context.Context, symbol string, r models.Range) (*normalize.ChartResult, error)
}

// SummaryProvider exposes the raw quoteSummary payload for the compatibility endpoint
type SummaryProvider interface {
	Provider
	FetchSummary(ctx context.Context, symbol string) (*normalize.QuoteSummaryResult, error)
}

// Searcher maps a free-text company name to a ticker
type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

// Compile-time interface verification
var _ ChartProvider = (*ChartService)(nil)
var _ SummaryProvider = (*QuoteSummaryService)(nil)
var _ Provider = (*ScrapeService)(nil)
var _ Provider = (*AlphaVantageService)(nil)
var _ Provider = (*FMPService)(nil)
var _ Searcher = (*SearchService)(nil)
