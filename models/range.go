package models

import (
	"fmt"
	"strings"
)

// Range is a chart lookback window understood by the chart provider
type Range string

const (
	Range1Day    Range = "1d"
	Range5Days   Range = "5d"
	Range1Month  Range = "1mo"
	Range3Months Range = "3mo"
	Range6Months Range = "6mo"
	Range1Year   Range = "1y"
	Range2Years  Range = "2y"
	Range5Years  Range = "5y"
)

// AllRanges lists the supported ranges from shortest to longest
var AllRanges = []Range{
	Range1Day, Range5Days, Range1Month, Range3Months,
	Range6Months, Range1Year, Range2Years, Range5Years,
}

// ParseRange accepts a range in either provider form ("3mo") or display form ("3M", "1W")
func ParseRange(s string) (Range, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "1w":
		return Range5Days, nil
	case "1m":
		return Range1Month, nil
	case "3m":
		return Range3Months, nil
	case "6m":
		return Range6Months, nil
	}
	for _, r := range AllRanges {
		if string(r) == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported range %q", s)
}

// Interval returns the bar interval requested for this range
func (r Range) Interval() string {
	switch r {
	case Range1Day:
		return "5m"
	case Range5Days:
		return "30m"
	default:
		return "1d"
	}
}

// Intraday reports whether bars for this range are finer than one day
func (r Range) Intraday() bool {
	return r.Interval() != "1d"
}
