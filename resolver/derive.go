package resolver

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"stockwatch/models"
	"stockwatch/normalize"
)

var hundred = decimal.NewFromInt(100)

// deriveRatios completes P/E and EPS from each other and converts a bare dividend
// rate to a yield. PEG and yield are never invented.
func deriveRatios(f *models.Facts) {
	if !f.Price.Valid || !f.Price.Decimal.IsPositive() {
		return
	}
	price := f.Price.Decimal

	switch {
	case !f.PERatio.Valid && f.EPS.Valid && f.EPS.Decimal.IsPositive():
		f.PERatio = models.Some(price.Div(f.EPS.Decimal).Round(2))
	case !f.EPS.Valid && f.PERatio.Valid && f.PERatio.Decimal.IsPositive():
		f.EPS = models.Some(price.Div(f.PERatio.Decimal).Round(2))
	}

	if !f.DividendYield.Valid {
		f.DividendYield = normalize.YieldFromRate(f.DividendRate, f.Price)
	}
}

type sectorRule struct {
	sector   string
	keywords []string
}

// sectorRules are matched against the leading letters of each word in a company
// name. Earlier rules win.
var sectorRules = []sectorRule{
	{"Financial Services", []string{"bank", "bancorp", "bancshares", "financial", "insurance", "assurance", "capital", "credit", "investment"}},
	{"Healthcare", []string{"pharma", "therapeutic", "biotech", "biosciences", "health", "medical", "genomic", "diagnostic"}},
	{"Real Estate", []string{"reit", "realty", "properties", "estate"}},
	{"Energy", []string{"energ", "oil", "petrol", "gas", "drilling"}},
	{"Utilities", []string{"utilit", "electric", "power", "water"}},
	{"Technology", []string{"software", "semiconductor", "technolog", "micro", "systems", "computer", "digital", "cyber"}},
	{"Communication Services", []string{"telecom", "communication", "media", "entertainment", "wireless"}},
	{"Consumer Defensive", []string{"food", "beverage", "grocer", "tobacco", "household"}},
	{"Consumer Cyclical", []string{"motor", "automotive", "restaurant", "retail", "apparel", "hotel", "resort"}},
	{"Industrials", []string{"airline", "aerospace", "industr", "railroad", "railway", "logistic", "freight", "machinery"}},
	{"Basic Materials", []string{"mining", "chemical", "steel", "gold", "metal"}},
}

// inferSector guesses a sector from a company name. It is a label of last resort.
func inferSector(companyName string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(companyName), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return "", false
	}

	for _, rule := range sectorRules {
		for _, kw := range rule.keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return rule.sector, true
				}
			}
		}
	}
	return "", false
}

// percentChange is (price-ref)/ref in percent, rounded to two places; 0 when ref is not positive
func percentChange(price, ref decimal.Decimal) float64 {
	if !ref.IsPositive() {
		return 0
	}
	return price.Sub(ref).Div(ref).Mul(hundred).Round(2).InexactFloat64()
}

// changeAt compares price against the close offset observations before the newest one,
// clamped to the oldest point
func changeAt(price decimal.Decimal, history []models.ClosePoint, offset int) float64 {
	if len(history) == 0 {
		return 0
	}
	i := len(history) - 1 - offset
	if i < 0 {
		i = 0
	}
	return percentChange(price, history[i].Close)
}

// changes computes the 1D, 1W and 1M moves. A single-point series has no prior
// observation, so the day move falls back to the reported previous close.
func changes(price decimal.Decimal, history []models.ClosePoint, previousClose decimal.NullDecimal) (day, week, month float64) {
	day = changeAt(price, history, 1)
	if len(history) < 2 {
		day = 0
		if previousClose.Valid {
			day = percentChange(price, previousClose.Decimal)
		}
	}
	return day, changeAt(price, history, 5), changeAt(price, history, 20)
}

// high52Week is the reported high, else the highest retrieved close, else the price
func high52Week(reported decimal.NullDecimal, history []models.ClosePoint, price decimal.Decimal) decimal.Decimal {
	if reported.Valid && reported.Decimal.IsPositive() {
		return reported.Decimal
	}
	if len(history) > 0 {
		high := history[0].Close
		for _, p := range history[1:] {
			if p.Close.GreaterThan(high) {
				high = p.Close
			}
		}
		if high.IsPositive() {
			return high
		}
	}
	return price
}

// trim keeps the newest n points in a fresh slice
func trim(history []models.ClosePoint, n int) []models.ClosePoint {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]models.ClosePoint, len(history))
	copy(out, history)
	return out
}
