// Package normalize maps raw provider payloads onto models.Facts with fixed
// field names and units. Everything here is pure: no I/O, no clocks.
package normalize

import (
	"strings"

	"stockwatch/models"

	"github.com/shopspring/decimal"
)

// Unit is the scale a provider reports a ratio in
type Unit int

const (
	// Fraction is 0..1 (0.032 means 3.2%)
	Fraction Unit = iota
	// Percent is 0..100
	Percent
)

var hundred = decimal.NewFromInt(100)

// ToPercent converts a present value to the percent scale. Absent stays absent.
func ToPercent(v decimal.NullDecimal, unit Unit) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	if unit == Fraction {
		return models.Some(v.Decimal.Mul(hundred))
	}
	return v
}

// YieldFromRate converts an annual dividend amount into a percent yield at the given price,
// rounded to two places
func YieldFromRate(rate, price decimal.NullDecimal) decimal.NullDecimal {
	if !rate.Valid || !price.Valid || !price.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return models.Some(rate.Decimal.Div(price.Decimal).Mul(hundred).Round(2))
}

// First returns the first present value
func First(values ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}

// Positive drops values that are not strictly positive (prices, highs)
func Positive(v decimal.NullDecimal) decimal.NullDecimal {
	if v.Valid && v.Decimal.IsPositive() {
		return v
	}
	return decimal.NullDecimal{}
}

// FromFloat converts a nullable JSON float
func FromFloat(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return models.SomeFloat(*f)
}

// ParseText parses a number that a provider encodes as text.
// Placeholders such as "None" or "-" mean the value is unknown, not zero.
func ParseText(s string) decimal.NullDecimal {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	switch strings.ToLower(s) {
	case "", "none", "-", "n/a", "null", "nan":
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return models.Some(d)
}

// CleanSector blanks out placeholder sector labels
func CleanSector(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "n/a", "none", "-", "unknown", "null":
		return ""
	}
	return s
}

func firstString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
