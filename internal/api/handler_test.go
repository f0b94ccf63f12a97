package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"stockwatch/config"
	"stockwatch/internal/app"
	"stockwatch/models"
	"stockwatch/normalize"
	"stockwatch/repository"
	"stockwatch/resolver"
	"stockwatch/services"
)

type stubChart struct {
	facts map[string]*models.Facts
	err   error
}

func (s *stubChart) Name() string { return services.ProviderChart }

func (s *stubChart) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	return s.FetchRange(ctx, symbol, models.Range3Months)
}

func (s *stubChart) FetchRange(ctx context.Context, symbol string, r models.Range) (*models.Facts, error) {
	if s.err != nil {
		return nil, s.err
	}
	f, ok := s.facts[symbol]
	if !ok {
		return nil, models.NewFetchError(services.ProviderChart, models.KindNotFound, errors.New("no chart result"))
	}
	c := *f
	return &c, nil
}

func (s *stubChart) FetchChart(ctx context.Context, symbol string, r models.Range) (*normalize.ChartResult, error) {
	if _, ok := s.facts[symbol]; !ok {
		return nil, models.NewFetchError(services.ProviderChart, models.KindNotFound, errors.New("no chart result"))
	}
	price := 190.5
	last := 189.0
	result := &normalize.ChartResult{Timestamp: []int64{1704232800}}
	result.Meta.Symbol = symbol
	result.Meta.RegularMarketPrice = &price
	result.Indicators.Quote = append(result.Indicators.Quote, struct {
		Close []*float64 `json:"close"`
	}{Close: []*float64{&last}})
	return result, nil
}

type stubSummary struct {
	result *normalize.QuoteSummaryResult
}

func (s *stubSummary) Name() string { return services.ProviderQuoteSummary }

func (s *stubSummary) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	return &models.Facts{Symbol: symbol}, nil
}

func (s *stubSummary) FetchSummary(ctx context.Context, symbol string) (*normalize.QuoteSummaryResult, error) {
	if s.result == nil {
		return nil, models.NewFetchError(services.ProviderQuoteSummary, models.KindNotFound, errors.New("no result"))
	}
	return s.result, nil
}

type stubScraper struct {
	facts *models.Facts
	err   error
}

func (s *stubScraper) Name() string { return services.ProviderScrape }

func (s *stubScraper) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	return s.facts, s.err
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	if strings.EqualFold(query, "apple") {
		return &models.SearchResult{Symbol: "AAPL", Name: "Apple Inc."}, nil
	}
	if query == "boom" {
		fe := models.NewFetchError(services.ProviderSearch, models.KindHTTPError, errors.New("upstream returned 500"))
		fe.Status = 500
		return nil, fe
	}
	return nil, models.NewFetchError(services.ProviderSearch, models.KindNotFound, errors.New("no quotes"))
}

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

func defaultChart() *stubChart {
	return &stubChart{facts: map[string]*models.Facts{
		"AAPL": {
			Symbol:      "AAPL",
			CompanyName: "Apple Inc.",
			Price:       models.SomeFloat(190),
			PERatio:     models.SomeFloat(29.5),
		},
	}}
}

// testApp creates an App with stub upstreams and a temp file store
func testApp(t *testing.T, chart *stubChart) *app.App {
	t.Helper()
	return app.New(testConfig(), app.Dependencies{
		Resolver: resolver.New(chart, nil, resolver.Options{}),
		Chart:    chart,
		Summary: &stubSummary{result: &normalize.QuoteSummaryResult{
			SummaryProfile: &normalize.ProfileModule{Sector: "Technology"},
		}},
		Scraper: &stubScraper{facts: &models.Facts{
			Sector:        "Technology",
			PERatio:       models.SomeFloat(29.5),
			DividendYield: models.SomeFloat(0),
		}},
		Searcher: stubSearcher{},
		Store:    repository.NewFileStore(filepath.Join(t.TempDir(), "watchlists.json")),
	})
}

// testRouter creates a Chi router with test config for testing
func testRouter(application *app.App) http.Handler {
	cfg := testConfig()
	handler := NewHandler(application, cfg)
	return NewRouter(handler, cfg)
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHandler_Index(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	w := serve(router, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	body := decode(t, w)
	if _, ok := body["endpoints"]; !ok {
		t.Error("expected endpoints in index response")
	}
}

func TestHandler_Health(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	w := serve(router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	svc := body["services"].(map[string]interface{})
	if svc["database"] != "not_configured" {
		t.Errorf("expected database not_configured, got %v", svc["database"])
	}
	if _, ok := body["circuit_breakers"]; !ok {
		t.Error("expected circuit_breakers in health response")
	}
	providers := body["providers"].([]interface{})
	if len(providers) != 1 || providers[0] != "chart" {
		t.Errorf("expected providers [chart], got %v", providers)
	}
}

func TestHandler_GetStock(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	t.Run("resolves record", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/stock/aapl", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		body := decode(t, w)
		if body["symbol"] != "AAPL" || body["ticker"] != "AAPL" {
			t.Errorf("expected symbol and ticker AAPL, got %v / %v", body["symbol"], body["ticker"])
		}
		if body["price"] != 190.0 {
			t.Errorf("expected price 190, got %v", body["price"])
		}
		if body["peRatio"] != 29.5 {
			t.Errorf("expected peRatio 29.5, got %v", body["peRatio"])
		}
		if body["dividendYield"] != nil {
			t.Errorf("expected absent dividendYield as null, got %v", body["dividendYield"])
		}
		chartData := body["chartData"].([]interface{})
		if len(chartData) != 1 || chartData[0] != 190.0 {
			t.Errorf("expected chartData [190], got %v", chartData)
		}
	})

	t.Run("unknown ticker is 404", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/stock/ZZZZINVALID", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", w.Code)
		}
		body := decode(t, w)
		if body["error"] != "Stock not found" {
			t.Errorf("expected 'Stock not found', got %v", body["error"])
		}
		if body["message"] == "" || body["message"] == nil {
			t.Error("expected message detail")
		}
	})

	t.Run("unusual ticker is 404", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/stock/AA$PL", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("missing ticker is 400", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/stock/", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandler_GetStock_UpstreamTimeout(t *testing.T) {
	chart := &stubChart{err: models.NewFetchError(services.ProviderChart, models.KindTimeout, context.DeadlineExceeded)}
	router := testRouter(testApp(t, chart))

	w := serve(router, http.MethodGet, "/stock/AAPL", "")
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("expected status 504, got %d", w.Code)
	}
}

func TestHandler_GetHistory(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	w := serve(router, http.MethodGet, "/stock/AAPL/history?range=3M", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["range"] != "3mo" || body["interval"] != "1d" {
		t.Errorf("expected range 3mo/1d, got %v/%v", body["range"], body["interval"])
	}

	w = serve(router, http.MethodGet, "/stock/AAPL/history?range=forever", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad range, got %d", w.Code)
	}
}

func TestHandler_Search(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantTicker string
	}{
		{"match", "/search?q=apple", http.StatusOK, "AAPL"},
		{"missing q", "/search", http.StatusBadRequest, ""},
		{"blank q", "/search?q=%20", http.StatusBadRequest, ""},
		{"no match", "/search?q=nothing", http.StatusNotFound, ""},
		{"upstream failure", "/search?q=boom", http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, tt.target, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantTicker != "" {
				body := decode(t, w)
				if body["ticker"] != tt.wantTicker || body["symbol"] != tt.wantTicker {
					t.Errorf("expected ticker %s, got %v", tt.wantTicker, body)
				}
				if body["name"] != "Apple Inc." {
					t.Errorf("expected name Apple Inc., got %v", body["name"])
				}
			}
		})
	}
}

func TestHandler_Proxies(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	t.Run("chart", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/stock?symbol=aapl", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		body := decode(t, w)
		chart := body["chart"].(map[string]interface{})
		result := chart["result"].([]interface{})
		if len(result) != 1 {
			t.Fatalf("expected one chart result, got %d", len(result))
		}
		meta := result[0].(map[string]interface{})["meta"].(map[string]interface{})
		if meta["regularMarketPrice"] != 190.5 {
			t.Errorf("expected regularMarketPrice 190.5, got %v", meta["regularMarketPrice"])
		}
	})

	t.Run("chart unknown symbol", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/stock?symbol=NOPE", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("quote summary", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/quoteSummary?symbol=AAPL", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		body := decode(t, w)
		qs := body["quoteSummary"].(map[string]interface{})
		result := qs["result"].([]interface{})
		profile := result[0].(map[string]interface{})["summaryProfile"].(map[string]interface{})
		if profile["sector"] != "Technology" {
			t.Errorf("expected sector Technology, got %v", profile["sector"])
		}
	})

	t.Run("scrape omits absent fields", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/scrapeYahoo?symbol=AAPL", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		body := decode(t, w)
		if body["sector"] != "Technology" || body["peRatio"] != 29.5 {
			t.Errorf("unexpected scrape body %v", body)
		}
		if body["dividendYield"] != 0.0 {
			t.Errorf("expected reported zero dividendYield, got %v", body["dividendYield"])
		}
		if _, ok := body["pegRatio"]; ok {
			t.Error("expected pegRatio to be omitted")
		}
	})

	for _, path := range []string{"/api/stock", "/api/quoteSummary", "/api/scrapeYahoo"} {
		t.Run("missing symbol "+path, func(t *testing.T) {
			w := serve(router, http.MethodGet, path, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestHandler_ScrapeNoEmbeddedData(t *testing.T) {
	chart := defaultChart()
	a := app.New(testConfig(), app.Dependencies{
		Resolver: resolver.New(chart, nil, resolver.Options{}),
		Scraper: &stubScraper{err: models.NewFetchError(services.ProviderScrape, models.KindParseError,
			services.ErrNoEmbeddedData)},
	})
	router := testRouter(a)

	w := serve(router, http.MethodGet, "/api/scrapeYahoo?symbol=AAPL", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "{}" {
		t.Errorf("expected empty object, got %s", w.Body.String())
	}
}

func TestHandler_CORS(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	w := serve(router, http.MethodOptions, "/stock/AAPL", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty preflight body, got %s", w.Body.String())
	}

	w = serve(router, http.MethodGet, "/search?q=apple", "")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
	}
}

func TestHandler_Metrics(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	w := serve(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestHandler_Watchlists(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	w := serve(router, http.MethodPost, "/api/watchlists", `{"name": "Tech"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id := created["id"].(string)
	base := "/api/watchlists/" + id

	w = serve(router, http.MethodPost, base+"/symbols", `{"symbol": "aapl"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 adding symbol, got %d: %s", w.Code, w.Body.String())
	}
	added := decode(t, w)
	stocks := added["watchlist"].(map[string]interface{})["stocks"].([]interface{})
	if len(stocks) != 1 || stocks[0] != "AAPL" {
		t.Errorf("expected stocks [AAPL], got %v", stocks)
	}

	w = serve(router, http.MethodPost, base+"/symbols", `{"symbol": "AAPL"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for duplicate, got %d", w.Code)
	}

	w = serve(router, http.MethodPost, base+"/symbols", `{"symbol": "ZZZZINVALID"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown stock, got %d", w.Code)
	}

	w = serve(router, http.MethodPost, base+"/symbols", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without symbol, got %d", w.Code)
	}

	w = serve(router, http.MethodGet, base+"/stocks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for stocks, got %d", w.Code)
	}
	batch := decode(t, w)
	if batch["succeeded"] != 1.0 || batch["failed"] != 0.0 {
		t.Errorf("expected 1 succeeded / 0 failed, got %v / %v", batch["succeeded"], batch["failed"])
	}

	w = serve(router, http.MethodPut, base, `{"name": "Big Tech"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for rename, got %d", w.Code)
	}
	if decode(t, w)["name"] != "Big Tech" {
		t.Error("expected renamed watchlist")
	}

	w = serve(router, http.MethodDelete, base+"/symbols/AAPL", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 removing symbol, got %d", w.Code)
	}

	w = serve(router, http.MethodGet, "/api/watchlists", "")
	var all []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(all) != 1 || len(all[0]["stocks"].([]interface{})) != 0 {
		t.Errorf("expected one empty watchlist, got %v", all)
	}

	w = serve(router, http.MethodDelete, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for delete, got %d", w.Code)
	}

	w = serve(router, http.MethodGet, base, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestHandler_WatchlistErrors(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"invalid id", http.MethodGet, "/api/watchlists/not-a-uuid", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/watchlists/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "", http.StatusNotFound},
		{"empty name", http.MethodPost, "/api/watchlists", `{"name": " "}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/watchlists", `{"name":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.target, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_WatchlistsWithoutStorage(t *testing.T) {
	a := app.New(testConfig(), app.Dependencies{
		Resolver: resolver.New(defaultChart(), nil, resolver.Options{}),
	})
	router := testRouter(a)

	w := serve(router, http.MethodGet, "/api/watchlists", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	httpErr := models.NewFetchError("chart", models.KindHTTPError, errors.New("bad gateway"))
	httpErr.Status = 502

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", models.NewFetchError("chart", models.KindTimeout, errors.New("slow")), http.StatusGatewayTimeout},
		{"http", httpErr, http.StatusBadGateway},
		{"not found", models.NewFetchError("chart", models.KindNotFound, errors.New("gone")), http.StatusNotFound},
		{"no price", models.ErrNoPriceData, http.StatusNotFound},
		{"parse", models.NewFetchError("chart", models.KindParseError, errors.New("junk")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandler_TickerShapes(t *testing.T) {
	router := testRouter(testApp(t, defaultChart()))

	tests := []struct {
		path string
		want int
	}{
		{"/stock/AAPL", http.StatusOK},
		{"/stock/aapl", http.StatusOK},
		{"/stock/THISISWAYTOOLONGTICKER", http.StatusNotFound},
		{"/stock/AA%20PL", http.StatusNotFound},
		{"/stock/%20", http.StatusBadRequest},
		{"/stock/THISISWAYTOOLONGTICKER/history", http.StatusNotFound},
		{"/stock/%20/history", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(router, http.MethodGet, tt.path, "")
			if w.Code != tt.want {
				t.Errorf("GET %s = %d, want %d: %s", tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}
