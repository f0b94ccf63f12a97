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

// ChartService fetches price history from the Yahoo v8 chart endpoint.
// It is the only source of current price and the mandatory primary strategy.
type ChartService struct {
	upstream
	baseURL      string
	primaryRange models.Range
}

// NewChartService creates a new ChartService instance
func NewChartService(baseURL string, primaryRange models.Range, opts Options) *ChartService {
	if primaryRange == "" {
		primaryRange = models.Range3Months
	}
	return &ChartService{
		upstream:     newUpstream(ProviderChart, opts),
		baseURL:      strings.TrimRight(baseURL, "/"),
		primaryRange: primaryRange,
	}
}

// FetchChart returns the raw chart result for a symbol over a range
func (s *ChartService) FetchChart(ctx context.Context, symbol string, r models.Range) (*normalize.ChartResult, error) {
	params := url.Values{}
	params.Set("range", string(r))
	params.Set("interval", r.Interval())

	reqURL := fmt.Sprintf("%s/%s?%s", s.baseURL, url.PathEscape(symbol), params.Encode())
	body, err := s.get(ctx, "chart", reqURL)
	if err != nil {
		return nil, err
	}

	var resp normalize.ChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.parseError(fmt.Errorf("failed to decode chart: %w", err))
	}

	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, s.notFound("%s: %s", symbol, e.Description)
		}
		return nil, s.parseError(fmt.Errorf("chart error %s: %s", e.Code, e.Description))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, s.notFound("no chart result for %s", symbol)
	}

	return &resp.Chart.Result[0], nil
}

// FetchRange fetches and normalizes a chart for the given range
func (s *ChartService) FetchRange(ctx context.Context, symbol string, r models.Range) (*models.Facts, error) {
	result, err := s.FetchChart(ctx, symbol, r)
	if err != nil {
		return nil, err
	}

	facts, err := normalize.Chart(symbol, result, r.Intraday())
	if err != nil {
		return nil, s.parseError(err)
	}
	return facts, nil
}

// Fetch fetches the primary range used for summary records
func (s *ChartService) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	return s.FetchRange(ctx, symbol, s.primaryRange)
}
