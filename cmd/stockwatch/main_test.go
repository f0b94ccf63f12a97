package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

const chartPayload = `{"chart":{"result":[{
	"meta":{"symbol":"AAPL","longName":"Apple Inc.","regularMarketPrice":190.5,"previousClose":188.0},
	"timestamp":[1704205800,1704292200],
	"indicators":{"quote":[{"close":[185.64,184.25]}]}
}],"error":null}}`

const searchPayload = `{"quotes":[{"symbol":"AAPL","shortname":"Apple Inc.","longname":"Apple Inc.","quoteType":"EQUITY"}]}`

// upstream serves the chart and search endpoints; everything else is a 404
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/chart/AAPL":
			w.Write([]byte(chartPayload))
		case r.URL.Path == "/chart/ZZZZ":
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		case r.URL.Path == "/search" && strings.Contains(r.URL.Query().Get("q"), "Apple"):
			w.Write([]byte(searchPayload))
		case r.URL.Path == "/search":
			w.Write([]byte(`{"quotes":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T) {
	t.Helper()
	srv := upstream(t)
	t.Setenv("STOCKWATCH_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "")
	t.Setenv("FMP_API_KEY", "")
	t.Setenv("REFRESH_SCHEDULE", "")
	t.Setenv("YAHOO_CHART_URL", srv.URL+"/chart")
	t.Setenv("YAHOO_SUMMARY_URL", srv.URL+"/summary")
	t.Setenv("YAHOO_QUOTE_PAGE_URL", srv.URL+"/quote")
	t.Setenv("YAHOO_SEARCH_URL", srv.URL+"/search")
	t.Setenv("RESOLVER_PRIMARY_RETRIES", "0")
	t.Setenv("WATCHLIST_FILE", filepath.Join(t.TempDir(), "watchlists.json"))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := map[string]bool{"serve": false, "quote": false, "history": false, "search": false}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s subcommand", name)
		}
	}
}

func TestQuoteCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "quote", "aapl")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if record["symbol"] != "AAPL" {
		t.Errorf("symbol = %v, want AAPL", record["symbol"])
	}
	if record["price"] != 190.5 {
		t.Errorf("price = %v, want 190.5", record["price"])
	}
	if record["companyName"] != "Apple Inc." {
		t.Errorf("companyName = %v, want Apple Inc.", record["companyName"])
	}
}

func TestQuoteCmd_Batch(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "quote", "AAPL", "ZZZZ")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	var result struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 1/1", result.Succeeded, result.Failed)
	}
}

func TestQuoteCmd_Unknown(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "quote", "ZZZZ"); err == nil {
		t.Error("expected error for unknown ticker")
	}
}

func TestQuoteCmd_RequiresSymbol(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "quote"); err == nil {
		t.Error("expected error without arguments")
	}
}

func TestSearchCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "search", "Apple", "Inc")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.HasPrefix(out, "AAPL\t") {
		t.Errorf("output = %q, want AAPL first", out)
	}

	if _, err := run(t, "search", "Nothing"); err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestHistoryCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "history", "AAPL", "--range", "3M")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}

	var body struct {
		Range          string            `json:"range"`
		HistoricalData []json.RawMessage `json:"historicalData"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if body.Range != "3mo" {
		t.Errorf("range = %s, want 3mo", body.Range)
	}
	if len(body.HistoricalData) != 2 {
		t.Errorf("len(historicalData) = %d, want 2", len(body.HistoricalData))
	}

	if _, err := run(t, "history", "AAPL", "--range", "forever"); err == nil {
		t.Error("expected error for unsupported range")
	}
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("RESOLVER_CHART_RANGE", "10y")

	if _, err := run(t, "quote", "AAPL"); err == nil {
		t.Error("expected config validation error")
	}
}
