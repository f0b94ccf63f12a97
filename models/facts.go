package models

import (
	"github.com/shopspring/decimal"
)

// Field names used when reporting which source filled what
const (
	FieldCompanyName   = "companyName"
	FieldPrice         = "price"
	FieldPreviousClose = "previousClose"
	FieldSector        = "sector"
	FieldPERatio       = "peRatio"
	FieldPEGRatio      = "pegRatio"
	FieldEPS           = "eps"
	FieldDividendYield = "dividendYield"
	FieldDividendRate  = "dividendRate"
	FieldHigh52Week    = "high52Week"
	FieldHistory       = "history"
)

// Facts is the partial set of stock facts a single provider can contribute.
// Every numeric field is nullable; a zero value with Valid=true is a reported zero.
type Facts struct {
	Symbol        string
	CompanyName   string
	Price         decimal.NullDecimal
	PreviousClose decimal.NullDecimal
	Sector        string
	PERatio       decimal.NullDecimal
	PEGRatio      decimal.NullDecimal
	EPS           decimal.NullDecimal
	DividendYield decimal.NullDecimal // percent scale
	DividendRate  decimal.NullDecimal // annual amount per share
	High52Week    decimal.NullDecimal
	History       []ClosePoint
	Intraday      bool
}

// Some wraps a decimal as a present value
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// SomeFloat wraps a float as a present value
func SomeFloat(f float64) decimal.NullDecimal {
	return Some(decimal.NewFromFloat(f))
}

// FundamentalsComplete reports whether enrichment has nothing left to fill
func (f *Facts) FundamentalsComplete() bool {
	return f.Sector != "" &&
		f.PERatio.Valid &&
		f.PEGRatio.Valid &&
		f.EPS.Valid &&
		f.DividendYield.Valid
}

// Merge fills every field still absent in f from lower, which has lower precedence.
// It never overwrites a populated field and returns the names of the fields it filled.
func (f *Facts) Merge(lower *Facts) []string {
	if lower == nil {
		return nil
	}

	var filled []string
	fillString := func(dst *string, src, name string) {
		if *dst == "" && src != "" {
			*dst = src
			filled = append(filled, name)
		}
	}
	fillNumber := func(dst *decimal.NullDecimal, src decimal.NullDecimal, name string) {
		if !dst.Valid && src.Valid {
			*dst = src
			filled = append(filled, name)
		}
	}

	if f.Symbol == "" {
		f.Symbol = lower.Symbol
	}
	fillString(&f.CompanyName, lower.CompanyName, FieldCompanyName)
	fillNumber(&f.Price, lower.Price, FieldPrice)
	fillNumber(&f.PreviousClose, lower.PreviousClose, FieldPreviousClose)
	fillString(&f.Sector, lower.Sector, FieldSector)
	fillNumber(&f.PERatio, lower.PERatio, FieldPERatio)
	fillNumber(&f.PEGRatio, lower.PEGRatio, FieldPEGRatio)
	fillNumber(&f.EPS, lower.EPS, FieldEPS)
	fillNumber(&f.DividendYield, lower.DividendYield, FieldDividendYield)
	fillNumber(&f.DividendRate, lower.DividendRate, FieldDividendRate)
	fillNumber(&f.High52Week, lower.High52Week, FieldHigh52Week)

	if len(f.History) == 0 && len(lower.History) > 0 {
		f.History = lower.History
		f.Intraday = lower.Intraday
		filled = append(filled, FieldHistory)
	}

	return filled
}
