// Package parse turns raw listing-page markup into Listing records. It is
// deliberately forgiving: malformed input degrades to an empty result, never
// an error, so an upstream layout change can't take the crawl loop down.
package parse

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"carwatch-engine/internal/domain"
)

type Parser struct {
	baseURL string
	source  string
}

func New(baseURL, source string) *Parser {
	return &Parser{baseURL: baseURL, source: source}
}

// Parse extracts listings from the page. The embedded __NEXT_DATA__ JSON is
// authoritative when present; otherwise we fall back to scraping the rendered
// DOM. Records without a stable id are dropped.
func (p *Parser) Parse(body []byte) []domain.Listing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	now := time.Now().UTC()
	if listings := p.parseNextData(doc, now); len(listings) > 0 {
		return listings
	}
	return p.parseDOM(doc, now)
}

// joinLink resolves a possibly-relative listing link against the page URL.
func (p *Parser) joinLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
