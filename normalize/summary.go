package normalize

import (
	"stockwatch/models"
)

// QuoteSummaryResponse is the Yahoo v10 quoteSummary envelope
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []QuoteSummaryResult `json:"result"`
		Error  *APIError            `json:"error"`
	} `json:"quoteSummary"`
}

// QuoteSummaryResult holds the modules we request. Any module may be missing.
type QuoteSummaryResult struct {
	SummaryProfile       *ProfileModule       `json:"summaryProfile,omitempty"`
	AssetProfile         *ProfileModule       `json:"assetProfile,omitempty"`
	DefaultKeyStatistics *KeyStatisticsModule `json:"defaultKeyStatistics,omitempty"`
	FinancialData        *FinancialDataModule `json:"financialData,omitempty"`
	SummaryDetail        *SummaryDetailModule `json:"summaryDetail,omitempty"`
	Price                *PriceModule         `json:"price,omitempty"`
}

type ProfileModule struct {
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

type KeyStatisticsModule struct {
	TrailingPE       Number `json:"trailingPE"`
	ForwardPE        Number `json:"forwardPE"`
	PEGRatio         Number `json:"pegRatio"`
	TrailingEps      Number `json:"trailingEps"`
	ForwardEps       Number `json:"forwardEps"`
	FiftyTwoWeekHigh Number `json:"fiftyTwoWeekHigh"`
}

type FinancialDataModule struct {
	CurrentPrice Number `json:"currentPrice"`
}

type SummaryDetailModule struct {
	TrailingPE                  Number `json:"trailingPE"`
	ForwardPE                   Number `json:"forwardPE"`
	DividendYield               Number `json:"dividendYield"`
	DividendRate                Number `json:"dividendRate"`
	TrailingAnnualDividendYield Number `json:"trailingAnnualDividendYield"`
	TrailingAnnualDividendRate  Number `json:"trailingAnnualDividendRate"`
	FiftyTwoWeekHigh            Number `json:"fiftyTwoWeekHigh"`
}

type PriceModule struct {
	RegularMarketPrice Number `json:"regularMarketPrice"`
	LongName           string `json:"longName,omitempty"`
	ShortName          string `json:"shortName,omitempty"`
}

// QuoteSummary maps a quoteSummary result (API or page-embedded) to facts.
// Trailing figures win over forward ones; Yahoo yields are fractions.
func QuoteSummary(symbol string, r *QuoteSummaryResult) *models.Facts {
	f := &models.Facts{Symbol: models.NormalizeSymbol(symbol)}
	if r == nil {
		return f
	}

	profile := r.SummaryProfile
	if profile == nil {
		profile = &ProfileModule{}
	}
	asset := r.AssetProfile
	if asset == nil {
		asset = &ProfileModule{}
	}
	ks := r.DefaultKeyStatistics
	if ks == nil {
		ks = &KeyStatisticsModule{}
	}
	fd := r.FinancialData
	if fd == nil {
		fd = &FinancialDataModule{}
	}
	sd := r.SummaryDetail
	if sd == nil {
		sd = &SummaryDetailModule{}
	}
	pm := r.Price
	if pm == nil {
		pm = &PriceModule{}
	}

	f.CompanyName = firstString(pm.LongName, pm.ShortName)
	f.Sector = firstString(CleanSector(profile.Sector), CleanSector(asset.Sector))
	f.Price = Positive(First(pm.RegularMarketPrice.NullDecimal, fd.CurrentPrice.NullDecimal))
	f.PERatio = First(sd.TrailingPE.NullDecimal, ks.TrailingPE.NullDecimal, sd.ForwardPE.NullDecimal, ks.ForwardPE.NullDecimal)
	f.PEGRatio = ks.PEGRatio.NullDecimal
	f.EPS = First(ks.TrailingEps.NullDecimal, ks.ForwardEps.NullDecimal)
	f.High52Week = Positive(First(sd.FiftyTwoWeekHigh.NullDecimal, ks.FiftyTwoWeekHigh.NullDecimal))
	f.DividendRate = First(sd.DividendRate.NullDecimal, sd.TrailingAnnualDividendRate.NullDecimal)
	f.DividendYield = ToPercent(First(sd.DividendYield.NullDecimal, sd.TrailingAnnualDividendYield.NullDecimal), Fraction)
	if !f.DividendYield.Valid {
		f.DividendYield = YieldFromRate(f.DividendRate, f.Price)
	}

	return f
}
