package parse

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"carwatch-engine/internal/domain"
)

// parseDOM is the fallback for pages where the __NEXT_DATA__ payload is
// missing or unreadable. It scrapes the rendered result containers by
// attribute and class heuristics; containers without an ad id are skipped.
func (p *Parser) parseDOM(doc *goquery.Document, now time.Time) []domain.Listing {
	var listings []domain.Listing

	doc.Find("[data-adid]").Each(func(_ int, sel *goquery.Selection) {
		id := strings.TrimSpace(sel.AttrOr("data-adid", ""))
		if id == "" {
			return
		}

		l := domain.Listing{
			ID:        id,
			Title:     cleanText(sel.Find("h2, h3, [class*=title]").First().Text()),
			Price:     cleanText(sel.Find("[class*=price]").First().Text()),
			Year:      cleanText(sel.Find("[class*=year]").First().Text()),
			Km:        cleanText(sel.Find("[class*=mileage], [class*=km]").First().Text()),
			CrawledAt: now,
			Source:    p.source,
		}

		if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
			l.Link = p.joinLink(href)
		}
		if src, ok := sel.Find("img[src]").First().Attr("src"); ok {
			l.ImageURL = src
		}

		listings = append(listings, l)
	})

	return listings
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
