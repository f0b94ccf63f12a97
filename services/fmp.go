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

// FMPService handles communication with Financial Modeling Prep API
type FMPService struct {
	upstream
	apiKey  string
	baseURL string
}

// NewFMPService creates a new FMPService instance
func NewFMPService(apiKey, baseURL string, opts Options) *FMPService {
	return &FMPService{
		upstream: newUpstream(ProviderFMP, opts),
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// GetProfile returns the company profile for a symbol
func (s *FMPService) GetProfile(ctx context.Context, symbol string) (*normalize.FMPProfile, error) {
	var profiles []normalize.FMPProfile
	if err := s.getList(ctx, "profile", symbol, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, s.notFound("no profile data for symbol %s", symbol)
	}
	return &profiles[0], nil
}

// GetRatios returns trailing-twelve-month ratios for a symbol
func (s *FMPService) GetRatios(ctx context.Context, symbol string) (*normalize.FMPRatios, error) {
	var ratios []normalize.FMPRatios
	if err := s.getList(ctx, "ratios-ttm", symbol, &ratios); err != nil {
		return nil, err
	}
	if len(ratios) == 0 {
		return nil, s.notFound("no ratios data for symbol %s", symbol)
	}
	return &ratios[0], nil
}

func (s *FMPService) getList(ctx context.Context, endpoint, symbol string, out any) error {
	reqURL := fmt.Sprintf("%s/%s/%s?apikey=%s", s.baseURL, endpoint, url.PathEscape(symbol), url.QueryEscape(s.apiKey))

	body, err := s.get(ctx, endpoint, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return s.parseError(fmt.Errorf("failed to decode %s response: %w", endpoint, err))
	}
	return nil
}

// Fetch combines profile and ratios. One of the two is enough.
func (s *FMPService) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	profile, profileErr := s.GetProfile(ctx, symbol)
	ratios, ratiosErr := s.GetRatios(ctx, symbol)

	if profileErr != nil && ratiosErr != nil {
		return nil, profileErr
	}
	return normalize.FMP(symbol, profile, ratios), nil
}
