package normalize

import (
	"stockwatch/models"
)

// OverviewPayload is the Alpha Vantage company overview. Every value arrives as text.
type OverviewPayload struct {
	Symbol           string `json:"Symbol"`
	Name             string `json:"Name"`
	Exchange         string `json:"Exchange"`
	Currency         string `json:"Currency"`
	Sector           string `json:"Sector"`
	Industry         string `json:"Industry"`
	MarketCap        string `json:"MarketCapitalization"`
	PERatio          string `json:"PERatio"`
	PEGRatio         string `json:"PEGRatio"`
	DividendPerShare string `json:"DividendPerShare"`
	DividendYield    string `json:"DividendYield"`
	EPS              string `json:"EPS"`
	Week52High       string `json:"52WeekHigh"`
	Week52Low        string `json:"52WeekLow"`

	// Set instead of data when the key is throttled or invalid
	Note         string `json:"Note,omitempty"`
	Information  string `json:"Information,omitempty"`
	ErrorMessage string `json:"Error Message,omitempty"`
}

// Overview maps an Alpha Vantage overview to facts
func Overview(symbol string, p *OverviewPayload) *models.Facts {
	f := &models.Facts{Symbol: models.NormalizeSymbol(symbol)}
	if p == nil {
		return f
	}

	f.CompanyName = firstString(p.Name)
	f.Sector = CleanSector(p.Sector)
	f.PERatio = ParseText(p.PERatio)
	f.PEGRatio = ParseText(p.PEGRatio)
	f.EPS = ParseText(p.EPS)
	f.DividendYield = ToPercent(ParseText(p.DividendYield), Fraction)
	f.DividendRate = ParseText(p.DividendPerShare)
	f.High52Week = Positive(ParseText(p.Week52High))

	return f
}
