package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stockwatch/models"
	"stockwatch/observability"

	"github.com/go-resty/resty/v2"
)

// SearchService resolves free-text company names to tickers via Yahoo search
type SearchService struct {
	upstream
	client  *resty.Client
	baseURL string
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
		Exchange  string `json:"exchange"`
	} `json:"quotes"`
}

// NewSearchService creates a new SearchService instance
func NewSearchService(baseURL string, opts Options) *SearchService {
	u := newUpstream(ProviderSearch, opts)

	client := resty.New().
		SetTimeout(u.httpClient.Timeout).
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &SearchService{
		upstream: u,
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Search returns the best match for a query. The first quote wins.
func (s *SearchService) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, s.notFound("empty search query")
	}

	metrics := observability.GetMetrics()
	metrics.RecordProviderRequest(s.provider, "search")
	timer := metrics.NewTimer()
	defer timer.ObserveProvider(s.provider, "search")

	result, err := s.search(ctx, query)
	if err != nil {
		metrics.RecordProviderError(s.provider, "search", string(models.KindOf(err)))
		return nil, err
	}
	return result, nil
}

func (s *SearchService) search(ctx context.Context, query string) (*models.SearchResult, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           query,
			"quotesCount": "5",
			"newsCount":   "0",
		}).
		Get(s.baseURL)
	if err != nil {
		return nil, s.transportError(err)
	}

	switch {
	case resp.StatusCode() == 404:
		return nil, s.notFound("search endpoint returned 404")
	case resp.IsError():
		fe := models.NewFetchError(s.provider, models.KindHTTPError, fmt.Errorf("search returned %s", resp.Status()))
		fe.Status = resp.StatusCode()
		return nil, fe
	}

	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, s.parseError(fmt.Errorf("failed to decode search: %w", err))
	}

	if len(out.Quotes) == 0 || out.Quotes[0].Symbol == "" {
		return nil, s.notFound("no match for %q", query)
	}

	first := out.Quotes[0]
	name := first.LongName
	if name == "" {
		name = first.ShortName
	}
	if name == "" {
		name = query
	}

	return &models.SearchResult{
		Symbol: models.NormalizeSymbol(first.Symbol),
		Name:   name,
	}, nil
}
