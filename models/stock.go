package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Watchlist clients read numbers, not quoted decimal strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// SectorUnknown is the display marker for a sector no source could supply
const SectorUnknown = "N/A"

// ClosePoint is a single historical close
type ClosePoint struct {
	Date      string          `json:"date"` // exchange-local YYYY-MM-DD
	Timestamp int64           `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
}

// StockRecord is the resolved, normalized view of one ticker.
// Optional ratios use NullDecimal: Valid=false means no source reported the value,
// which is distinct from a reported zero.
type StockRecord struct {
	Symbol         string              `json:"symbol"`
	CompanyName    string              `json:"companyName"`
	Price          decimal.Decimal     `json:"price"`
	Change1D       float64             `json:"change1D"`
	Change1W       float64             `json:"change1W"`
	Change1M       float64             `json:"change1M"`
	Sector         string              `json:"sector"`
	SectorInferred bool                `json:"sectorInferred"`
	PERatio        decimal.NullDecimal `json:"peRatio"`
	PEGRatio       decimal.NullDecimal `json:"pegRatio"`
	EPS            decimal.NullDecimal `json:"eps"`
	DividendYield  decimal.NullDecimal `json:"dividendYield"`
	High52Week     decimal.Decimal     `json:"high52Week"`
	Delta52W       float64             `json:"delta52W"`
	HistoricalData []ClosePoint        `json:"historicalData"`
	Sources        []string            `json:"sources"`
	FetchedAt      time.Time           `json:"fetchedAt"`
}

// ChartData returns the close series as plain floats, oldest first
func (r *StockRecord) ChartData() []float64 {
	if len(r.HistoricalData) == 0 {
		return []float64{r.Price.InexactFloat64()}
	}
	out := make([]float64, len(r.HistoricalData))
	for i, p := range r.HistoricalData {
		out[i] = p.Close.InexactFloat64()
	}
	return out
}

// SearchResult is the best-guess ticker for a free-text company query
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// NormalizeSymbol trims and uppercases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether s looks like an exchange ticker (letters, digits, . - ^ =)
func ValidSymbol(s string) bool {
	if s == "" || len(s) > 16 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '^', c == '=':
		default:
			return false
		}
	}
	return true
}
