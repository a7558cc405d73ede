package parse

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"carwatch-engine/internal/domain"
)

// flexString tolerates ids that arrive as JSON numbers or strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}

type nextData struct {
	Props struct {
		PageProps struct {
			SearchResult struct {
				AdvertSummaryList struct {
					AdvertSummary []advertSummary `json:"advertSummary"`
				} `json:"advertSummaryList"`
			} `json:"searchResult"`
		} `json:"pageProps"`
	} `json:"props"`
}

type advertSummary struct {
	ID          flexString `json:"id"`
	Description string     `json:"description"`
	SelfLink    string     `json:"selfLink"`
	Attributes  struct {
		Attribute []advertAttribute `json:"attribute"`
	} `json:"attributes"`
	AdvertImageList struct {
		AdvertImage []advertImage `json:"advertImage"`
	} `json:"advertImageList"`
}

type advertAttribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type advertImage struct {
	MainImageURL      string `json:"mainImageUrl"`
	ThumbnailImageURL string `json:"thumbnailImageUrl"`
	Href              string `json:"href"`
}

// parseNextData extracts listings from the __NEXT_DATA__ script tag emitted
// by the site's Next.js frontend. Any structural mismatch yields nil and the
// caller falls back to the DOM.
func (p *Parser) parseNextData(doc *goquery.Document, now time.Time) []domain.Listing {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var nd nextData
	if err := json.Unmarshal([]byte(raw), &nd); err != nil {
		return nil
	}

	adverts := nd.Props.PageProps.SearchResult.AdvertSummaryList.AdvertSummary
	listings := make([]domain.Listing, 0, len(adverts))
	for _, ad := range adverts {
		id := strings.TrimSpace(string(ad.ID))
		if id == "" {
			continue
		}

		l := domain.Listing{
			ID:        id,
			Title:     strings.TrimSpace(ad.Description),
			Link:      ad.SelfLink,
			CrawledAt: now,
			Source:    p.source,
		}

		var price, priceDisplay, seoURL string
		for _, attr := range ad.Attributes.Attribute {
			if len(attr.Values) == 0 {
				continue
			}
			v := attr.Values[0]
			switch attr.Name {
			case "PRICE":
				price = v
			case "PRICE_FOR_DISPLAY":
				priceDisplay = v
			case "YEAR_MODEL":
				l.Year = v
			case "MILEAGE":
				l.Km = v
			case "SEO_URL":
				seoURL = v
			}
		}
		if priceDisplay != "" {
			l.Price = priceDisplay
		} else {
			l.Price = price
		}
		if seoURL != "" {
			l.Link = p.joinLink(seoURL)
		}

		for _, img := range ad.AdvertImageList.AdvertImage {
			if u := firstNonEmpty(img.MainImageURL, img.ThumbnailImageURL, img.Href); u != "" {
				l.ImageURL = u
				break
			}
		}

		listings = append(listings, l)
	}
	return listings
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
