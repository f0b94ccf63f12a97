package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"stockwatch/models"
	"stockwatch/normalize"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoEmbeddedData is returned when a quote page matches none of the known layouts
var ErrNoEmbeddedData = errors.New("no embedded quote data found in page")

const appMainMarker = "root.App.main"

// ScrapeService extracts fundamentals embedded in the Yahoo quote page.
// Page layouts change without notice, so several patterns are tried in order.
type ScrapeService struct {
	upstream
	baseURL string
}

// NewScrapeService creates a new ScrapeService instance
func NewScrapeService(baseURL string, opts Options) *ScrapeService {
	return &ScrapeService{
		upstream: newUpstream(ProviderScrape, opts),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Fetch downloads the quote page for a symbol and extracts what it can
func (s *ScrapeService) Fetch(ctx context.Context, symbol string) (*models.Facts, error) {
	body, err := s.get(ctx, "page", fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(symbol)))
	if err != nil {
		return nil, err
	}

	facts, err := ParseQuotePage(symbol, body)
	if err != nil {
		return nil, s.parseError(err)
	}
	return facts, nil
}

// ParseQuotePage extracts facts from quote page HTML. The embedded app state wins,
// then the embedded quoteSummary fetch payload, then the visible sector label.
func ParseQuotePage(symbol string, page []byte) (*models.Facts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote page: %w", err)
	}

	var facts *models.Facts
	if result := appMainSummary(doc); result != nil {
		facts = normalize.QuoteSummary(symbol, result)
	} else if result := embeddedFetchSummary(doc); result != nil {
		facts = normalize.QuoteSummary(symbol, result)
	}

	if facts == nil || facts.Sector == "" {
		if sector := sectorLabel(doc); sector != "" {
			if facts == nil {
				facts = &models.Facts{Symbol: models.NormalizeSymbol(symbol)}
			}
			facts.Sector = sector
		}
	}

	if facts == nil {
		return nil, ErrNoEmbeddedData
	}
	return facts, nil
}

// appMainSummary reads `root.App.main = {...};` from an inline script
func appMainSummary(doc *goquery.Document) *normalize.QuoteSummaryResult {
	var result *normalize.QuoteSummaryResult

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		i := strings.Index(text, appMainMarker)
		if i < 0 {
			return true
		}
		j := strings.Index(text[i:], "{")
		if j < 0 {
			return true
		}

		var state struct {
			Context struct {
				Dispatcher struct {
					Stores struct {
						QuoteSummaryStore *normalize.QuoteSummaryResponse `json:"QuoteSummaryStore"`
					} `json:"stores"`
				} `json:"dispatcher"`
			} `json:"context"`
		}
		// Decoder stops at the end of the object and ignores the trailing `;`
		if err := json.NewDecoder(strings.NewReader(text[i+j:])).Decode(&state); err != nil {
			return true
		}

		store := state.Context.Dispatcher.Stores.QuoteSummaryStore
		if store != nil && len(store.QuoteSummary.Result) > 0 {
			result = &store.QuoteSummary.Result[0]
			return false
		}
		return true
	})

	return result
}

// embeddedFetchSummary reads a server-side fetch cached in a JSON script tag
func embeddedFetchSummary(doc *goquery.Document) *normalize.QuoteSummaryResult {
	var result *normalize.QuoteSummaryResult

	doc.Find(`script[type="application/json"][data-url*="quoteSummary"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var wrapper struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal([]byte(sel.Text()), &wrapper); err != nil || wrapper.Body == "" {
			return true
		}

		var resp normalize.QuoteSummaryResponse
		if err := json.Unmarshal([]byte(wrapper.Body), &resp); err != nil {
			return true
		}
		if len(resp.QuoteSummary.Result) > 0 {
			result = &resp.QuoteSummary.Result[0]
			return false
		}
		return true
	})

	return result
}

// sectorLabel finds <span>Sector</span><span>Technology</span>
func sectorLabel(doc *goquery.Document) string {
	var sector string

	doc.Find("span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := strings.TrimSpace(sel.Text())
		if !strings.EqualFold(label, "Sector") && !strings.EqualFold(label, "Sector(s)") {
			return true
		}
		value := normalize.CleanSector(sel.NextFiltered("span").Text())
		if value == "" {
			value = normalize.CleanSector(sel.Next().Find("span").First().Text())
		}
		if value != "" {
			sector = value
			return false
		}
		return true
	})

	return sector
}
