// Package mocks provides an HTTP mock of every upstream market data API used in E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Base paths of the mocked upstreams, relative to URL()
const (
	ChartPath        = "/v8/finance/chart"
	QuoteSummaryPath = "/v10/finance/quoteSummary"
	QuotePagePath    = "/quote"
	SearchPath       = "/v1/finance/search"
	AlphaVantagePath = "/alphavantage/query"
	FMPPath          = "/fmp/api/v3"
)

// Upstream names used for error injection
const (
	UpstreamChart        = "chart"
	UpstreamQuoteSummary = "quotesummary"
	UpstreamQuotePage    = "scrape"
	UpstreamSearch       = "search"
	UpstreamAlphaVantage = "alphavantage"
	UpstreamFMP          = "fmp"
)

// MockServer provides configurable mock responses for all upstream APIs.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	quotes       map[string]Quote
	fundamentals map[string]Fundamentals
	pageSectors  map[string]string
	overviews    map[string]Overview
	fmpProfiles  map[string]FMPProfile
	fmpRatios    map[string]FMPRatios

	// Error injection: upstream name -> HTTP status
	failures map[string]int
	// Artificial latency per upstream
	delays map[string]time.Duration

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		quotes:       make(map[string]Quote),
		fundamentals: make(map[string]Fundamentals),
		pageSectors:  make(map[string]string),
		overviews:    make(map[string]Overview),
		fmpProfiles:  make(map[string]FMPProfile),
		fmpRatios:    make(map[string]FMPRatios),
		failures:     make(map[string]int),
		delays:       make(map[string]time.Duration),
		requestLog:   make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, ChartPath+"/"):
		m.serve(w, r, UpstreamChart, m.handleChart)
	case strings.HasPrefix(path, QuoteSummaryPath+"/"):
		m.serve(w, r, UpstreamQuoteSummary, m.handleQuoteSummary)
	case strings.HasPrefix(path, QuotePagePath+"/"):
		m.serve(w, r, UpstreamQuotePage, m.handleQuotePage)
	case path == SearchPath:
		m.serve(w, r, UpstreamSearch, m.handleSearch)
	case path == AlphaVantagePath && r.URL.Query().Get("function") == "OVERVIEW":
		m.serve(w, r, UpstreamAlphaVantage, m.handleAlphaVantage)
	case strings.HasPrefix(path, FMPPath+"/profile/"):
		m.serve(w, r, UpstreamFMP, m.handleFMPProfile)
	case strings.HasPrefix(path, FMPPath+"/ratios-ttm/"):
		m.serve(w, r, UpstreamFMP, m.handleFMPRatios)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (m *MockServer) serve(w http.ResponseWriter, r *http.Request, upstream string, next http.HandlerFunc) {
	m.mu.RLock()
	status := m.failures[upstream]
	delay := m.delays[upstream]
	m.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, fmt.Sprintf("injected %s failure", upstream), status)
		return
	}
	next(w, r)
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// RequestCount returns how many logged requests hit paths starting with prefix.
func (m *MockServer) RequestCount(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, req := range m.requestLog {
		if strings.HasPrefix(req.Path, prefix) {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetQuote configures the chart response for a symbol.
func (m *MockServer) SetQuote(q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[strings.ToUpper(q.Symbol)] = q
}

// SetFundamentals configures the quoteSummary response for a symbol.
func (m *MockServer) SetFundamentals(symbol string, f Fundamentals) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fundamentals[strings.ToUpper(symbol)] = f
}

// RemoveFundamentals makes the quoteSummary endpoint report no result for a symbol.
func (m *MockServer) RemoveFundamentals(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fundamentals, strings.ToUpper(symbol))
}

// SetPageSector configures the sector label shown on a symbol's quote page.
func (m *MockServer) SetPageSector(symbol, sector string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSectors[strings.ToUpper(symbol)] = sector
}

// SetOverview configures the Alpha Vantage overview for a symbol.
func (m *MockServer) SetOverview(o Overview) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overviews[strings.ToUpper(o.Symbol)] = o
}

// SetFMP configures the FMP profile and ratios for a symbol.
func (m *MockServer) SetFMP(profile FMPProfile, ratios FMPRatios) {
	m.mu.Lock()
	defer m.mu.Unlock()
	symbol := strings.ToUpper(profile.Symbol)
	m.fmpProfiles[symbol] = profile
	m.fmpRatios[symbol] = ratios
}

// SetFailure makes an upstream answer every request with status. Zero clears it.
func (m *MockServer) SetFailure(upstream string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.failures, upstream)
		return
	}
	m.failures[upstream] = status
}

// SetDelay makes an upstream wait before answering. Zero clears it.
func (m *MockServer) SetDelay(upstream string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[upstream] = d
}

func (m *MockServer) setDefaults() {
	m.quotes["AAPL"] = Quote{
		Symbol:        "AAPL",
		Name:          "Apple Inc.",
		Price:         190.00,
		PreviousClose: 188.00,
		High52Week:    199.62,
		Closes:        generateCloses(30, 170.0, 0.75),
		GMTOffset:     -18000,
	}
	m.quotes["MSFT"] = Quote{
		Symbol:        "MSFT",
		Name:          "Microsoft Corporation",
		Price:         410.00,
		PreviousClose: 405.00,
		Closes:        generateCloses(30, 390.0, 0.5),
		GMTOffset:     -18000,
	}
	m.quotes["KO"] = Quote{
		Symbol:        "KO",
		Name:          "The Coca-Cola Company",
		Price:         60.00,
		PreviousClose: 60.00,
		Closes:        generateCloses(30, 59.0, 0.05),
		GMTOffset:     -18000,
	}

	// AAPL: quoteSummary lacks the PEG ratio, Alpha Vantage fills it
	m.fundamentals["AAPL"] = Fundamentals{
		Sector:        "Technology",
		TrailingPE:    Float(29.5),
		TrailingEPS:   Float(6.43),
		DividendYield: Float(0.0052),
	}
	m.overviews["AAPL"] = Overview{
		Symbol:        "AAPL",
		Name:          "Apple Inc",
		Sector:        "TECHNOLOGY",
		PERatio:       "28.5",
		PEGRatio:      "2.1",
		EPS:           "6.15",
		DividendYield: "0.0052",
		Week52High:    "199.62",
	}

	// MSFT: complete after quoteSummary
	m.fundamentals["MSFT"] = Fundamentals{
		Sector:        "Technology",
		TrailingPE:    Float(35.2),
		PEGRatio:      Float(2.4),
		TrailingEPS:   Float(11.65),
		DividendYield: Float(0.0072),
	}

	// KO: only the quote page and FMP know anything
	m.pageSectors["KO"] = "Consumer Defensive"
	m.fmpProfiles["KO"] = FMPProfile{Symbol: "KO", CompanyName: "The Coca-Cola Company", Sector: "Consumer Defensive", Range: "57.93-64.99"}
	m.fmpRatios["KO"] = FMPRatios{
		Symbol:                  "KO",
		PERatio:                 Float(24.1),
		PEGRatio:                Float(3.2),
		DividendYieldPercentage: Float(3.1),
		EPS:                     Float(2.47),
	}
}

func symbolFromPath(path, prefix string) string {
	return strings.ToUpper(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
}

func (m *MockServer) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol := symbolFromPath(r.URL.Path, ChartPath)

	m.mu.RLock()
	q, ok := m.quotes[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, map[string]interface{}{
			"chart": map[string]interface{}{
				"result": nil,
				"error": map[string]string{
					"code":        "Not Found",
					"description": "No data found, symbol may be delisted",
				},
			},
		})
		return
	}

	writeJSON(w, map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{chartResult(q, r.URL.Query().Get("range"))},
			"error":  nil,
		},
	})
}

func chartResult(q Quote, rng string) map[string]interface{} {
	end := time.Date(2024, time.March, 28, 14, 30, 0, 0, time.UTC)
	timestamps := make([]int64, len(q.Closes))
	for i := range q.Closes {
		timestamps[i] = end.AddDate(0, 0, i-len(q.Closes)+1).Unix()
	}

	meta := map[string]interface{}{
		"symbol":             q.Symbol,
		"longName":           q.Name,
		"regularMarketPrice": q.Price,
		"gmtoffset":          q.GMTOffset,
		"range":              rng,
	}
	if q.PreviousClose > 0 {
		meta["previousClose"] = q.PreviousClose
	}
	if q.High52Week > 0 {
		meta["fiftyTwoWeekHigh"] = q.High52Week
	}

	return map[string]interface{}{
		"meta":      meta,
		"timestamp": timestamps,
		"indicators": map[string]interface{}{
			"quote": []map[string]interface{}{{"close": q.Closes}},
		},
	}
}

func raw(v *float64) interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{"raw": *v, "fmt": fmt.Sprintf("%.2f", *v)}
}

func summaryResult(f Fundamentals) map[string]interface{} {
	return map[string]interface{}{
		"summaryProfile": map[string]string{"sector": f.Sector},
		"defaultKeyStatistics": map[string]interface{}{
			"trailingEps": raw(f.TrailingEPS),
			"pegRatio":    raw(f.PEGRatio),
		},
		"summaryDetail": map[string]interface{}{
			"trailingPE":    raw(f.TrailingPE),
			"dividendYield": raw(f.DividendYield),
		},
	}
}

func (m *MockServer) handleQuoteSummary(w http.ResponseWriter, r *http.Request) {
	symbol := symbolFromPath(r.URL.Path, QuoteSummaryPath)

	m.mu.RLock()
	f, ok := m.fundamentals[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, map[string]interface{}{
			"quoteSummary": map[string]interface{}{
				"result": nil,
				"error": map[string]string{
					"code":        "Not Found",
					"description": "Quote not found for symbol: " + symbol,
				},
			},
		})
		return
	}

	writeJSON(w, map[string]interface{}{
		"quoteSummary": map[string]interface{}{
			"result": []interface{}{summaryResult(f)},
			"error":  nil,
		},
	})
}

func (m *MockServer) handleQuotePage(w http.ResponseWriter, r *http.Request) {
	symbol := symbolFromPath(r.URL.Path, QuotePagePath)

	m.mu.RLock()
	sector := m.pageSectors[symbol]
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(html.EscapeString(symbol))
	b.WriteString("</title></head><body>")
	if sector != "" {
		b.WriteString(`<div class="company-stats"><span>Sector</span><span>`)
		b.WriteString(html.EscapeString(sector))
		b.WriteString("</span></div>")
	}
	b.WriteString("</body></html>")
	w.Write([]byte(b.String()))
}

func (m *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	m.mu.RLock()
	hits := make([]SearchHit, 0)
	for _, quote := range m.quotes {
		if q != "" && strings.Contains(strings.ToLower(quote.Name), q) {
			hits = append(hits, SearchHit{
				Symbol:    quote.Symbol,
				ShortName: quote.Name,
				LongName:  quote.Name,
				QuoteType: "EQUITY",
			})
		}
	}
	m.mu.RUnlock()

	writeJSON(w, map[string]interface{}{"quotes": hits})
}

func (m *MockServer) handleAlphaVantage(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	m.mu.RLock()
	o, ok := m.overviews[symbol]
	m.mu.RUnlock()

	if !ok {
		// Alpha Vantage answers unknown symbols with an empty object
		writeJSON(w, map[string]string{})
		return
	}
	writeJSON(w, o)
}

func (m *MockServer) handleFMPProfile(w http.ResponseWriter, r *http.Request) {
	symbol := symbolFromPath(r.URL.Path, FMPPath+"/profile")

	m.mu.RLock()
	p, ok := m.fmpProfiles[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, []FMPProfile{})
		return
	}
	writeJSON(w, []FMPProfile{p})
}

func (m *MockServer) handleFMPRatios(w http.ResponseWriter, r *http.Request) {
	symbol := symbolFromPath(r.URL.Path, FMPPath+"/ratios-ttm")

	m.mu.RLock()
	ratios, ok := m.fmpRatios[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, []FMPRatios{})
		return
	}
	writeJSON(w, []FMPRatios{ratios})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// generateCloses builds an ascending close series starting at base
func generateCloses(count int, base, step float64) []float64 {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = base + float64(i)*step
	}
	return closes
}
