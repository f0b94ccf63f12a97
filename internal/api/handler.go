package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stockwatch/config"
	"stockwatch/internal/app"
	"stockwatch/models"
	"stockwatch/observability"

	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleIndex describes the service and its endpoints
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]interface{}{
		"message": "stockwatch API is running",
		"endpoints": []string{
			"/stock/:ticker",
			"/stock/:ticker/history?range=...",
			"/search?q=companyname",
			"/api/stock?symbol=...",
			"/api/quoteSummary?symbol=...",
			"/api/scrapeYahoo?symbol=...",
			"/api/watchlists",
		},
	})
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if db := h.app.DB(); db != nil {
		ctx := r.Context()
		if err := db.Health(ctx); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	res := h.app.Resolver()
	status["providers"] = res.Providers()
	status["cache_entries"] = h.app.CacheEntries()

	// Add circuit breaker status
	cbStatus := res.Breakers().Status()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// StockResponse is a resolved record plus the fields older clients read
type StockResponse struct {
	*models.StockRecord
	Ticker    string    `json:"ticker"`
	ChartData []float64 `json:"chartData"`
}

// HandleGetStock returns the resolved record for a ticker
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.requireTicker(w, r)
	if !ok {
		return
	}

	record, err := h.app.Quote(r.Context(), ticker)
	if err != nil {
		h.stockError(w, err)
		return
	}

	h.jsonResponse(w, StockResponse{
		StockRecord: record,
		Ticker:      record.Symbol,
		ChartData:   record.ChartData(),
	})
}

// HandleMissingTicker rejects /stock/ without a ticker
func (h *Handler) HandleMissingTicker(w http.ResponseWriter, r *http.Request) {
	h.jsonError(w, "Ticker required", http.StatusBadRequest)
}

// HandleGetHistory returns the detail close series for a ticker
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.requireTicker(w, r)
	if !ok {
		return
	}

	points, rng, err := h.app.History(r.Context(), ticker, r.URL.Query().Get("range"))
	if err != nil {
		if rng == "" {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.stockError(w, err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"symbol":         ticker,
		"range":          rng,
		"interval":       rng.Interval(),
		"historicalData": points,
	})
}

// HandleSearch maps a company name to a ticker
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.jsonError(w, `Query parameter "q" is required`, http.StatusBadRequest)
		return
	}

	result, err := h.app.Search(r.Context(), q)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.jsonError(w, "Company not found", http.StatusNotFound)
			return
		}
		observability.Warn("search failed", "query", q, "error", err)
		h.jsonErrorDetail(w, "Search failed", err.Error(), statusFor(err))
		return
	}

	name := result.Name
	if name == "" {
		name = q
	}
	h.jsonResponse(w, map[string]string{
		"ticker": result.Symbol,
		"symbol": result.Symbol,
		"name":   name,
	})
}

// HandleChartProxy returns the raw three-month daily chart for a symbol
func (h *Handler) HandleChartProxy(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.requireSymbol(w, r)
	if !ok {
		return
	}

	result, err := h.app.Chart(r.Context(), symbol)
	if err != nil {
		h.proxyError(w, "Failed to fetch data", err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{result},
			"error":  nil,
		},
	})
}

// HandleQuoteSummaryProxy returns the raw quoteSummary result for a symbol
func (h *Handler) HandleQuoteSummaryProxy(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.requireSymbol(w, r)
	if !ok {
		return
	}

	result, err := h.app.QuoteSummary(r.Context(), symbol)
	if err != nil {
		h.proxyError(w, "Failed to fetch data", err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"quoteSummary": map[string]interface{}{
			"result": []interface{}{result},
		},
	})
}

// HandleScrapeProxy returns whatever fundamentals the quote page carries.
// Fields the page does not carry are omitted; a page with none yields {}.
func (h *Handler) HandleScrapeProxy(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.requireSymbol(w, r)
	if !ok {
		return
	}

	facts, err := h.app.Scrape(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrParse) {
			h.jsonResponse(w, map[string]interface{}{})
			return
		}
		h.proxyError(w, "Failed to scrape data", err)
		return
	}

	data := map[string]interface{}{}
	if facts.Sector != "" {
		data["sector"] = facts.Sector
	}
	if facts.PERatio.Valid {
		data["peRatio"] = facts.PERatio.Decimal
	}
	if facts.PEGRatio.Valid {
		data["pegRatio"] = facts.PEGRatio.Decimal
	}
	if facts.EPS.Valid {
		data["eps"] = facts.EPS.Decimal
	}
	if facts.DividendYield.Valid {
		data["dividendYield"] = facts.DividendYield.Decimal
	}
	h.jsonResponse(w, data)
}

// WatchlistRequest is the body for creating or renaming a watchlist
type WatchlistRequest struct {
	Name string `json:"name"`
}

// AddSymbolRequest is the body for adding a ticker or company name
type AddSymbolRequest struct {
	Symbol string `json:"symbol"`
}

// HandleListWatchlists returns all watchlists
func (h *Handler) HandleListWatchlists(w http.ResponseWriter, r *http.Request) {
	watchlists, err := h.app.ListWatchlists(r.Context())
	if err != nil {
		h.watchlistError(w, err)
		return
	}
	h.jsonResponse(w, watchlists)
}

// HandleCreateWatchlist creates an empty watchlist
func (h *Handler) HandleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	watchlist, err := h.app.CreateWatchlist(r.Context(), req.Name)
	if err != nil {
		h.watchlistError(w, err)
		return
	}

	h.jsonResponseStatus(w, watchlist, http.StatusCreated)
}

// HandleGetWatchlist returns one watchlist
func (h *Handler) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	watchlist, err := h.app.GetWatchlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.watchlistError(w, err)
		return
	}
	h.jsonResponse(w, watchlist)
}

// HandleRenameWatchlist changes a watchlist's name
func (h *Handler) HandleRenameWatchlist(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	watchlist, err := h.app.RenameWatchlist(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.watchlistError(w, err)
		return
	}
	h.jsonResponse(w, watchlist)
}

// HandleDeleteWatchlist removes a watchlist
func (h *Handler) HandleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.app.DeleteWatchlist(r.Context(), id); err != nil {
		h.watchlistError(w, err)
		return
	}
	h.jsonResponse(w, StatusResponse{Status: "deleted", Message: id})
}

// HandleAddSymbol adds a ticker, or the ticker of a company name, to a watchlist
func (h *Handler) HandleAddSymbol(w http.ResponseWriter, r *http.Request) {
	var req AddSymbolRequest

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		_ = json.NewDecoder(r.Body).Decode(&req)
	} else {
		_ = r.ParseForm()
		req.Symbol = r.FormValue("symbol")
	}

	if strings.TrimSpace(req.Symbol) == "" {
		h.jsonError(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	watchlist, record, err := h.app.AddSymbol(r.Context(), chi.URLParam(r, "id"), req.Symbol)
	if err != nil {
		h.watchlistError(w, err)
		return
	}

	h.jsonResponseStatus(w, map[string]interface{}{
		"watchlist": watchlist,
		"stock":     record,
	}, http.StatusCreated)
}

// HandleRemoveSymbol drops a symbol from a watchlist
func (h *Handler) HandleRemoveSymbol(w http.ResponseWriter, r *http.Request) {
	watchlist, err := h.app.RemoveSymbol(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "symbol"))
	if err != nil {
		h.watchlistError(w, err)
		return
	}
	h.jsonResponse(w, watchlist)
}

// HandleWatchlistStocks resolves every symbol of a watchlist
func (h *Handler) HandleWatchlistStocks(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.WatchlistStocks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.watchlistError(w, err)
		return
	}
	h.jsonResponse(w, result)
}

// Helper functions

// requireTicker reads the ticker path parameter, writing a 400 only when it is
// blank. Unusual tickers go to the resolver, which answers 404 if upstream has none.
func (h *Handler) requireTicker(w http.ResponseWriter, r *http.Request) (string, bool) {
	ticker := models.NormalizeSymbol(chi.URLParam(r, "ticker"))
	if ticker == "" {
		h.jsonError(w, "Ticker required", http.StatusBadRequest)
		return "", false
	}
	return ticker, true
}

// requireSymbol reads the symbol query parameter, writing a 400 when it is missing
func (h *Handler) requireSymbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := models.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		h.jsonError(w, "Symbol required", http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

// statusFor maps a failure kind to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrHTTP):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNoPriceData), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) stockError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		h.jsonErrorDetail(w, "Stock not found", err.Error(), status)
	case http.StatusGatewayTimeout:
		h.jsonErrorDetail(w, "Upstream timeout", err.Error(), status)
	case http.StatusBadGateway:
		h.jsonErrorDetail(w, "Upstream error", err.Error(), status)
	default:
		h.jsonErrorDetail(w, "Failed to fetch data", err.Error(), status)
	}
}

func (h *Handler) proxyError(w http.ResponseWriter, message string, err error) {
	observability.Warn("proxy request failed", "error", err)
	status := statusFor(err)
	if status == http.StatusNotFound {
		h.jsonErrorDetail(w, "Stock not found", err.Error(), status)
		return
	}
	h.jsonErrorDetail(w, message, err.Error(), status)
}

func (h *Handler) watchlistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrStorageUnavailable):
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, app.ErrInvalidID),
		errors.Is(err, app.ErrEmptyInput),
		errors.Is(err, models.ErrInvalidName):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrWatchlistNotFound):
		h.jsonError(w, "Watchlist not found", http.StatusNotFound)
	case errors.Is(err, models.ErrDuplicateSymbol):
		h.jsonError(w, "Stock already in watchlist", http.StatusConflict)
	case models.KindOf(err) != models.KindUnknown:
		h.stockError(w, err)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonResponseStatus(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *Handler) jsonErrorDetail(w http.ResponseWriter, message, detail string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "message": detail})
}

// StatusResponse represents a status response
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
