package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockwatch/models"
)

const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "longName": "Apple Inc.", "regularMarketPrice": 150.0, "chartPreviousClose": 148.0, "gmtoffset": 0},
      "timestamp": [1700000000, 1700086400],
      "indicators": {"quote": [{"close": [148.0, 150.0]}]}
    }],
    "error": null
  }
}`

func TestNewChartService(t *testing.T) {
	service := NewChartService("https://example.com/chart/", "", Options{})
	if service == nil {
		t.Fatal("NewChartService should not return nil")
	}
	if service.baseURL != "https://example.com/chart" {
		t.Errorf("baseURL = %v, want trailing slash trimmed", service.baseURL)
	}
	if service.primaryRange != models.Range3Months {
		t.Errorf("primaryRange = %v, want 3mo", service.primaryRange)
	}
	if service.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", service.httpClient.Timeout, DefaultTimeout)
	}
	if service.Name() != ProviderChart {
		t.Errorf("Name() = %v, want %v", service.Name(), ProviderChart)
	}
}

func TestChartService_Fetch(t *testing.T) {
	var gotPath, gotRange, gotInterval, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	service := NewChartService(server.URL, models.Range3Months, Options{UserAgent: "test-agent"})
	facts, err := service.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/AAPL" {
		t.Errorf("path = %v, want /AAPL", gotPath)
	}
	if gotRange != "3mo" || gotInterval != "1d" {
		t.Errorf("range/interval = %v/%v, want 3mo/1d", gotRange, gotInterval)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent = %v, want test-agent", gotUA)
	}
	if facts.CompanyName != "Apple Inc." {
		t.Errorf("CompanyName = %v, want Apple Inc.", facts.CompanyName)
	}
	if len(facts.History) != 2 {
		t.Errorf("len(History) = %d, want 2", len(facts.History))
	}
}

func TestChartService_FetchRange_Intraday(t *testing.T) {
	var gotInterval string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	service := NewChartService(server.URL, models.Range3Months, Options{})
	facts, err := service.FetchRange(context.Background(), "AAPL", models.Range1Day)
	if err != nil {
		t.Fatalf("FetchRange() error = %v", err)
	}
	if gotInterval != "5m" {
		t.Errorf("interval = %v, want 5m", gotInterval)
	}
	if !facts.Intraday {
		t.Error("Intraday should be true for 1d range")
	}
}

func TestChartService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.FailureKind
	}{
		{"404 status", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, models.KindNotFound},
		{"not found in body", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, models.KindNotFound},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, models.KindNotFound},
		{"server error", http.StatusInternalServerError, `oops`, models.KindHTTPError},
		{"invalid json", http.StatusOK, `<html>`, models.KindParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			service := NewChartService(server.URL, models.Range3Months, Options{})
			_, err := service.Fetch(context.Background(), "ZZZZ")
			if err == nil {
				t.Fatal("expected error")
			}

			var fe *models.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("error %v is not a FetchError", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", fe.Kind, tt.wantKind)
			}
			if fe.Provider != ProviderChart {
				t.Errorf("Provider = %v, want %v", fe.Provider, ProviderChart)
			}
		})
	}
}

func TestChartService_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewChartService(server.URL, models.Range3Months, Options{})
	_, err := service.Fetch(context.Background(), "AAPL")
	if !IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}

func TestChartService_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	service := NewChartService(server.URL, models.Range3Months, Options{Timeout: 20 * time.Millisecond})
	_, err := service.Fetch(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := models.KindOf(err); kind != models.KindTimeout {
		t.Errorf("KindOf = %v, want %v", kind, models.KindTimeout)
	}
	if !errors.Is(err, models.ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) should be true")
	}
}

func TestChartService_CallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewChartService(server.URL, models.Range3Months, Options{})
	_, err := service.Fetch(ctx, "AAPL")
	if kind := models.KindOf(err); kind != models.KindCanceled {
		t.Errorf("KindOf = %v, want %v", kind, models.KindCanceled)
	}
	if IsTransient(err) {
		t.Error("a canceled request should not be retried")
	}
}

func TestChartService_EscapesSymbol(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	service := NewChartService(server.URL, models.Range3Months, Options{})
	if _, err := service.Fetch(context.Background(), "^GSPC"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(gotPath, "%5EGSPC") {
		t.Errorf("path = %v, want escaped caret", gotPath)
	}
}
