package mocks

// Quote is the chart-side view of a symbol served from the Yahoo chart endpoint.
type Quote struct {
	Symbol        string
	Name          string
	Price         float64
	PreviousClose float64
	High52Week    float64
	Closes        []float64 // oldest first, one per trading day
	GMTOffset     int64
}

// Fundamentals is what the quoteSummary endpoint reports for a symbol.
// Nil pointers are omitted from the payload.
type Fundamentals struct {
	Sector        string
	TrailingPE    *float64
	PEGRatio      *float64
	TrailingEPS   *float64
	DividendYield *float64 // fraction, as Yahoo reports it
}

// Overview is an Alpha Vantage company overview. Values are text, as upstream sends them.
type Overview struct {
	Symbol           string `json:"Symbol"`
	Name             string `json:"Name"`
	Sector           string `json:"Sector"`
	PERatio          string `json:"PERatio"`
	PEGRatio         string `json:"PEGRatio"`
	EPS              string `json:"EPS"`
	DividendYield    string `json:"DividendYield"`
	DividendPerShare string `json:"DividendPerShare"`
	Week52High       string `json:"52WeekHigh"`
}

// FMPProfile is a Financial Modeling Prep company profile.
type FMPProfile struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       *float64 `json:"price,omitempty"`
	LastDiv     *float64 `json:"lastDiv,omitempty"`
	Range       string   `json:"range,omitempty"`
	Sector      string   `json:"sector"`
}

// FMPRatios are Financial Modeling Prep trailing-twelve-month ratios.
type FMPRatios struct {
	Symbol                  string   `json:"symbol"`
	PERatio                 *float64 `json:"peRatioTTM,omitempty"`
	PEGRatio                *float64 `json:"pegRatioTTM,omitempty"`
	DividendYieldPercentage *float64 `json:"dividendYieldPercentageTTM,omitempty"`
	EPS                     *float64 `json:"netIncomePerShareTTM,omitempty"`
}

// SearchHit is one entry of a Yahoo search response.
type SearchHit struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	QuoteType string `json:"quoteType"`
}

// Float returns a pointer to v, for the optional fields above.
func Float(v float64) *float64 {
	return &v
}
