package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"stockwatch/models"
	"stockwatch/observability"
)

// DefaultTimeout bounds every provider request unless configured otherwise
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of an upstream response we read. Quote pages are large.
const maxBodyBytes = 8 << 20

// Provider names, also used as circuit breaker names and metric labels
const (
	ProviderChart        = "chart"
	ProviderQuoteSummary = "quotesummary"
	ProviderScrape       = "scrape"
	ProviderSearch       = "search"
	ProviderAlphaVantage = "alphavantage"
	ProviderFMP          = "fmp"
)

// Options holds the transport settings every provider client takes
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// upstream is the HTTP plumbing shared by the provider clients
type upstream struct {
	provider   string
	httpClient *http.Client
	userAgent  string
}

func newUpstream(provider string, opts Options) upstream {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return upstream{
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  opts.UserAgent,
	}
}

// Name returns the provider name
func (u *upstream) Name() string {
	return u.provider
}

// get performs a GET and returns the body of a 2xx response. Everything else
// comes back as a *models.FetchError.
func (u *upstream) get(ctx context.Context, operation, rawURL string) ([]byte, error) {
	metrics := observability.GetMetrics()
	metrics.RecordProviderRequest(u.provider, operation)
	timer := metrics.NewTimer()
	defer timer.ObserveProvider(u.provider, operation)

	body, err := u.do(ctx, rawURL)
	if err != nil {
		metrics.RecordProviderError(u.provider, operation, string(models.KindOf(err)))
		return nil, err
	}
	return body, nil
}

func (u *upstream) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, models.NewFetchError(u.provider, models.KindHTTPError, fmt.Errorf("failed to build request: %w", err))
	}
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, u.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, u.transportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.NewFetchError(u.provider, models.KindNotFound, errors.New("upstream returned 404"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		fe := models.NewFetchError(u.provider, models.KindHTTPError, fmt.Errorf("upstream returned %s", resp.Status))
		fe.Status = resp.StatusCode
		return nil, fe
	}

	return body, nil
}

func (u *upstream) transportError(err error) error {
	if isTimeout(err) {
		return models.NewFetchError(u.provider, models.KindTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return models.NewFetchError(u.provider, models.KindCanceled, err)
	}
	return models.NewFetchError(u.provider, models.KindHTTPError, err)
}

func (u *upstream) parseError(err error) error {
	return models.NewFetchError(u.provider, models.KindParseError, err)
}

func (u *upstream) notFound(format string, args ...any) error {
	return models.NewFetchError(u.provider, models.KindNotFound, fmt.Errorf(format, args...))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
