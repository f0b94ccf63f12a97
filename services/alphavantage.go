package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"stockwatch/models"
	"stockwatch/normalize"

	"golang.org/x/time/rate"
)

// AlphaVantageService handles communication with Alpha Vantage API
type AlphaVantageService struct {
	upstream
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

// NewAlphaVantageService creates a new AlphaVantageService instance.
// The free tier allows a handful of calls per minute; requests wait for a token.
func NewAlphaVantageService(apiKey, baseURL string, requestsPerMinute int, opts Options) *AlphaVantageService {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5
	}
	return &AlphaVantageService{
		upstream: newUpstream(ProviderAlphaVantage, opts),
		apiKey:   apiKey,
		baseURL:  baseURL,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// GetOverview returns the raw company overview for a symbol
func (s *AlphaVantageService) GetOverview(ctx context.Context, symbol string) (*normalize.OverviewPayload, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.transportError(fmt.Errorf("rate limiter: %w", err))
	}

	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	params.Set("apikey", s.apiKey)

	body, err := s.get(ctx, "overview", s.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var overview normalize.OverviewPayload
	if err := json.Unmarshal(body, &overview); err != nil {
		return nil, s.parseError(fmt.Errorf("failed to decode overview: %w", err))
	}

	// Throttling and bad keys come back as 200 with a message instead of data
	if msg := firstNonEmpty(overview.Note, overview.Information, overview.ErrorMessage); msg != "" {
		fe := models.NewFetchError(s.provider, models.KindHTTPError, fmt.Errorf("alpha vantage: %s", msg))
		fe.Status = 429
		return nil, fe
	}
	if overview.Symbol == "" {
		return nil, s.notFound("no overview for %s", symbol)
	}

	return &overview, nil
}

// Fetch fetches and normalizes the overview for a symbol
func (s *AlphaVantageService) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	overview, err := s.GetOverview(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return normalize.Overview(symbol, overview), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
