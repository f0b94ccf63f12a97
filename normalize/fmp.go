package normalize

import (
	"strings"

	"stockwatch/models"
)

// FMPProfile is a company profile from Financial Modeling Prep
type FMPProfile struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       *float64 `json:"price"`
	LastDiv     *float64 `json:"lastDiv"`
	Range       string   `json:"range"` // "low-high" over 52 weeks
	Sector      string   `json:"sector"`
	Industry    string   `json:"industry"`
}

// FMPRatios are trailing-twelve-month ratios from Financial Modeling Prep
type FMPRatios struct {
	Symbol                  string   `json:"symbol"`
	PERatio                 *float64 `json:"peRatioTTM"`
	PEGRatio                *float64 `json:"pegRatioTTM"`
	DividendYield           *float64 `json:"dividendYieldTTM"`
	DividendYieldPercentage *float64 `json:"dividendYieldPercentageTTM"`
	EPS                     *float64 `json:"netIncomePerShareTTM"`
}

// FMP maps a profile and ratios pair to facts. Either may be nil.
// FMP reports the yield on both scales; the percent field wins.
func FMP(symbol string, profile *FMPProfile, ratios *FMPRatios) *models.Facts {
	f := &models.Facts{Symbol: models.NormalizeSymbol(symbol)}

	if profile != nil {
		f.CompanyName = firstString(profile.CompanyName)
		f.Sector = CleanSector(profile.Sector)
		f.Price = Positive(FromFloat(profile.Price))
		f.DividendRate = FromFloat(profile.LastDiv)
		if i := strings.LastIndex(profile.Range, "-"); i > 0 {
			f.High52Week = Positive(ParseText(profile.Range[i+1:]))
		}
	}

	if ratios != nil {
		f.PERatio = FromFloat(ratios.PERatio)
		f.PEGRatio = FromFloat(ratios.PEGRatio)
		f.EPS = FromFloat(ratios.EPS)
		f.DividendYield = First(
			ToPercent(FromFloat(ratios.DividendYieldPercentage), Percent),
			ToPercent(FromFloat(ratios.DividendYield), Fraction),
		)
	}

	if !f.DividendYield.Valid {
		f.DividendYield = YieldFromRate(f.DividendRate, f.Price)
	}
	return f
}
