package normalize

import (
	"errors"
	"sort"
	"time"

	"stockwatch/models"

	"github.com/shopspring/decimal"
)

// ChartResponse is the Yahoo v8 chart envelope
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *APIError     `json:"error"`
	} `json:"chart"`
}

// APIError is the error object both Yahoo finance envelopes share
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ChartResult is one symbol's chart: metadata plus parallel timestamp/close arrays
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta holds the quote fields reported alongside the series
type ChartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency,omitempty"`
	LongName             string   `json:"longName,omitempty"`
	ShortName            string   `json:"shortName,omitempty"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	PreviousClose        *float64 `json:"previousClose,omitempty"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose,omitempty"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh,omitempty"`
	GMTOffset            int64    `json:"gmtoffset"`
	ExchangeTimezoneName string   `json:"exchangeTimezoneName,omitempty"`
	DataGranularity      string   `json:"dataGranularity,omitempty"`
	Range                string   `json:"range,omitempty"`
}

// ErrEmptyChart is returned when the envelope carries no result
var ErrEmptyChart = errors.New("chart response has no result")

// Closes returns the close column, or nil when the quote indicator is missing
func (r *ChartResult) Closes() []*float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	return r.Indicators.Quote[0].Close
}

// Chart maps a chart result to facts. Intraday series are keyed by timestamp,
// daily series by exchange-local date.
func Chart(symbol string, r *ChartResult, intraday bool) (*models.Facts, error) {
	if r == nil {
		return nil, ErrEmptyChart
	}

	history := Series(r.Timestamp, r.Closes(), r.Meta.GMTOffset, intraday)

	price := Positive(FromFloat(r.Meta.RegularMarketPrice))
	if !price.Valid && len(history) > 0 {
		price = models.Some(history[len(history)-1].Close)
	}

	return &models.Facts{
		Symbol:        models.NormalizeSymbol(firstString(r.Meta.Symbol, symbol)),
		CompanyName:   firstString(r.Meta.LongName, r.Meta.ShortName),
		Price:         price,
		PreviousClose: Positive(First(FromFloat(r.Meta.PreviousClose), FromFloat(r.Meta.ChartPreviousClose))),
		High52Week:    Positive(FromFloat(r.Meta.FiftyTwoWeekHigh)),
		History:       history,
		Intraday:      intraday,
	}, nil
}

// Series zips parallel timestamp/close arrays into an ascending, deduplicated series.
// Null and non-positive closes are dropped; on duplicate keys the later point wins.
func Series(timestamps []int64, closes []*float64, gmtOffset int64, intraday bool) []models.ClosePoint {
	n := len(timestamps)
	if len(closes) < n {
		n = len(closes)
	}

	points := make([]models.ClosePoint, 0, n)
	for i := 0; i < n; i++ {
		c := closes[i]
		if c == nil || *c <= 0 {
			continue
		}
		points = append(points, models.ClosePoint{
			Date:      time.Unix(timestamps[i]+gmtOffset, 0).UTC().Format("2006-01-02"),
			Timestamp: timestamps[i],
			Close:     decimal.NewFromFloat(*c),
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	out := make([]models.ClosePoint, 0, len(points))
	for _, p := range points {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if (intraday && last.Timestamp == p.Timestamp) || (!intraday && last.Date == p.Date) {
				*last = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
