//go:build e2e
// +build e2e

package scenarios

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"stockwatch/config"
	"stockwatch/e2e"
	"stockwatch/e2e/mocks"
	"stockwatch/internal/app"
)

type watchlistBody struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Stocks []string `json:"stocks"`
}

func createWatchlist(t *testing.T, harness *e2e.TestHarness, name string) watchlistBody {
	t.Helper()
	resp := harness.DoRequest(http.MethodPost, "/api/watchlists", `{"name":"`+name+`"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var w watchlistBody
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		t.Fatalf("failed to decode watchlist: %v", err)
	}
	return w
}

func runWatchlistFlow(t *testing.T, harness *e2e.TestHarness) string {
	w := createWatchlist(t, harness, "Core")
	base := "/api/watchlists/" + w.ID

	t.Run("add by ticker", func(t *testing.T) {
		resp := harness.DoRequest(http.MethodPost, base+"/symbols", `{"symbol":"msft"}`)
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("add by company name through the form endpoint", func(t *testing.T) {
		resp := harness.DoFormRequest(base+"/symbols", "symbol=Coca-Cola")
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
		}
		var body struct {
			Watchlist watchlistBody `json:"watchlist"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Watchlist.Stocks) != 2 || body.Watchlist.Stocks[1] != "KO" {
			t.Errorf("expected [MSFT KO], got %v", body.Watchlist.Stocks)
		}
	})

	t.Run("duplicate is rejected without a lookup", func(t *testing.T) {
		before := harness.MockServer().RequestCount(mocks.ChartPath)
		resp := harness.DoRequest(http.MethodPost, base+"/symbols", `{"symbol":"MSFT"}`)
		if resp.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", resp.Code)
		}
		if after := harness.MockServer().RequestCount(mocks.ChartPath); after != before {
			t.Errorf("expected no chart requests for a duplicate, got %d", after-before)
		}
	})

	t.Run("unknown symbol is rejected", func(t *testing.T) {
		resp := harness.DoRequest(http.MethodPost, base+"/symbols", `{"symbol":"Nonexistent Holdings"}`)
		if resp.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.Code)
		}
	})

	t.Run("stocks resolve in order", func(t *testing.T) {
		resp := harness.DoRequest(http.MethodGet, base+"/stocks", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.Code)
		}
		var body struct {
			Stocks []struct {
				Symbol string `json:"symbol"`
			} `json:"stocks"`
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Succeeded != 2 || body.Failed != 0 {
			t.Fatalf("expected 2/0, got %d/%d", body.Succeeded, body.Failed)
		}
		if body.Stocks[0].Symbol != "MSFT" || body.Stocks[1].Symbol != "KO" {
			t.Errorf("expected MSFT then KO, got %+v", body.Stocks)
		}
	})

	t.Run("remove and rename", func(t *testing.T) {
		resp := harness.DoRequest(http.MethodDelete, base+"/symbols/ko", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.Code)
		}
		resp = harness.DoRequest(http.MethodPut, base, `{"name":"Mega caps"}`)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.Code)
		}

		resp = harness.DoRequest(http.MethodGet, base, "")
		var got watchlistBody
		json.NewDecoder(resp.Body).Decode(&got)
		if got.Name != "Mega caps" || len(got.Stocks) != 1 || got.Stocks[0] != "MSFT" {
			t.Errorf("unexpected watchlist %+v", got)
		}
	})

	return w.ID
}

func TestWatchlistFlow_FileStore(t *testing.T) {
	harness := setup(t)
	id := runWatchlistFlow(t, harness)

	resp := harness.DoRequest(http.MethodDelete, "/api/watchlists/"+id, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = harness.DoRequest(http.MethodGet, "/api/watchlists/"+id, "")
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", resp.Code)
	}
}

func TestWatchlistFlow_PartialFailure(t *testing.T) {
	harness := setup(t)
	w := createWatchlist(t, harness, "Mixed")
	base := "/api/watchlists/" + w.ID

	for _, symbol := range []string{"AAPL", "MSFT"} {
		resp := harness.DoRequest(http.MethodPost, base+"/symbols", `{"symbol":"`+symbol+`"}`)
		if resp.Code != http.StatusCreated {
			t.Fatalf("adding %s: expected status 201, got %d", symbol, resp.Code)
		}
	}

	// A second app shares only the watchlist file; its upstream reports no AAPL price
	harness2 := e2e.NewTestHarness(t)
	if err := harness2.Setup(func(cfg *config.Config) { cfg.Watchlist.FilePath = harness.Config().Watchlist.FilePath }); err != nil {
		t.Fatalf("failed to setup second harness: %v", err)
	}
	defer harness2.Teardown()
	harness2.MockServer().SetQuote(mocks.Quote{Symbol: "AAPL"}) // no price

	resp := harness2.DoRequest(http.MethodGet, base+"/stocks", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body struct {
		Failures []struct {
			Symbol string `json:"symbol"`
			Kind   string `json:"kind"`
		} `json:"failures"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Succeeded != 1 || body.Failed != 1 {
		t.Fatalf("expected 1/1, got %d/%d", body.Succeeded, body.Failed)
	}
	if body.Failures[0].Symbol != "AAPL" || body.Failures[0].Kind != "no_price_data" {
		t.Errorf("unexpected failure %+v", body.Failures[0])
	}
}

func TestWatchlistFlow_Database(t *testing.T) {
	harness := e2e.NewDatabaseTestHarness(t)
	if err := harness.Setup(); err != nil {
		t.Fatalf("failed to setup test harness: %v", err)
	}
	defer harness.Teardown()

	runWatchlistFlow(t, harness)

	resp := harness.DoRequest(http.MethodGet, "/api/health", "")
	var health struct {
		Services map[string]string `json:"services"`
	}
	json.NewDecoder(resp.Body).Decode(&health)
	if health.Services["database"] != "connected" {
		t.Errorf("expected database connected, got %v", health.Services)
	}

	// A fresh app instance reads the MSFT snapshot instead of calling the chart upstream
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fresh, err := app.Build(ctx, harness.Config())
	if err != nil {
		t.Fatalf("failed to build second app: %v", err)
	}
	defer fresh.Shutdown(ctx)

	before := harness.MockServer().RequestCount(mocks.ChartPath)
	record, err := fresh.Quote(ctx, "MSFT")
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if record.Symbol != "MSFT" {
		t.Errorf("expected MSFT, got %s", record.Symbol)
	}
	if after := harness.MockServer().RequestCount(mocks.ChartPath); after != before {
		t.Errorf("expected the snapshot to serve MSFT, saw %d chart requests", after-before)
	}
}
