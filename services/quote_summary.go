package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"stockwatch/models"
	"stockwatch/normalize"
)

// SummaryModules are the quoteSummary modules requested for fundamentals
var SummaryModules = []string{
	"summaryProfile",
	"defaultKeyStatistics",
	"financialData",
	"assetProfile",
	"summaryDetail",
	"price",
}

// QuoteSummaryService fetches fundamentals from the Yahoo v10 quoteSummary endpoint
type QuoteSummaryService struct {
	upstream
	baseURL string
}

// NewQuoteSummaryService creates a new QuoteSummaryService instance
func NewQuoteSummaryService(baseURL string, opts Options) *QuoteSummaryService {
	return &QuoteSummaryService{
		upstream: newUpstream(ProviderQuoteSummary, opts),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// FetchSummary returns the raw quoteSummary result for a symbol
func (s *QuoteSummaryService) FetchSummary(ctx context.Context, symbol string) (*normalize.QuoteSummaryResult, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(SummaryModules, ","))

	reqURL := fmt.Sprintf("%s/%s?%s", s.baseURL, url.PathEscape(symbol), params.Encode())
	body, err := s.get(ctx, "quoteSummary", reqURL)
	if err != nil {
		return nil, err
	}

	var resp normalize.QuoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.parseError(fmt.Errorf("failed to decode quoteSummary: %w", err))
	}

	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, s.notFound("%s: %s", symbol, e.Description)
		}
		return nil, s.parseError(fmt.Errorf("quoteSummary error %s: %s", e.Code, e.Description))
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, s.notFound("no quoteSummary result for %s", symbol)
	}

	return &resp.QuoteSummary.Result[0], nil
}

// Fetch fetches and normalizes fundamentals for a symbol
func (s *QuoteSummaryService) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	result, err := s.FetchSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return normalize.QuoteSummary(symbol, result), nil
}
