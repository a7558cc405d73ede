package parse

import (
	"testing"
)

const nextDataPage = `<html><head></head><body>
<script id="__NEXT_DATA__" type="application/json">
{
  "props": {
    "pageProps": {
      "searchResult": {
        "advertSummaryList": {
          "advertSummary": [
            {
              "id": 812345678,
              "description": "VW Golf VII 2.0 TDI",
              "attributes": {
                "attribute": [
                  {"name": "PRICE", "values": ["15990"]},
                  {"name": "PRICE_FOR_DISPLAY", "values": ["€ 15.990"]},
                  {"name": "YEAR_MODEL", "values": ["2018"]},
                  {"name": "MILEAGE", "values": ["89000"]},
                  {"name": "SEO_URL", "values": ["/iad/gebrauchtwagen/d/vw-golf-812345678"]}
                ]
              },
              "advertImageList": {
                "advertImage": [
                  {"mainImageUrl": "https://cache.example.com/main.jpg", "thumbnailImageUrl": "https://cache.example.com/thumb.jpg"}
                ]
              }
            },
            {
              "id": "812345679",
              "description": "Audi A4 Avant",
              "attributes": {"attribute": [{"name": "PRICE", "values": ["22000"]}]},
              "advertImageList": {"advertImage": [{"thumbnailImageUrl": "https://cache.example.com/a4.jpg"}]}
            },
            {
              "description": "no id, must be dropped",
              "attributes": {"attribute": []}
            }
          ]
        }
      }
    }
  }
}
</script>
</body></html>`

func TestParseNextData(t *testing.T) {
	p := New("https://www.willhaben.at/iad/gebrauchtwagen", "willhaben")
	got := p.Parse([]byte(nextDataPage))

	if len(got) != 2 {
		t.Fatalf("parsed %d listings, want 2 (idless record dropped)", len(got))
	}

	first := got[0]
	if first.ID != "812345678" {
		t.Fatalf("ID = %q, want 812345678 (numeric id coerced to string)", first.ID)
	}
	if first.Title != "VW Golf VII 2.0 TDI" {
		t.Fatalf("Title = %q", first.Title)
	}
	if first.Price != "€ 15.990" {
		t.Fatalf("Price = %q, want display price preferred", first.Price)
	}
	if first.Year != "2018" || first.Km != "89000" {
		t.Fatalf("Year/Km = %q/%q, want 2018/89000", first.Year, first.Km)
	}
	if first.Link != "https://www.willhaben.at/iad/gebrauchtwagen/d/vw-golf-812345678" {
		t.Fatalf("Link = %q, want SEO url resolved against base", first.Link)
	}
	if first.ImageURL != "https://cache.example.com/main.jpg" {
		t.Fatalf("ImageURL = %q, want main image preferred", first.ImageURL)
	}
	if first.Source != "willhaben" {
		t.Fatalf("Source = %q, want willhaben", first.Source)
	}
	if first.CrawledAt.IsZero() {
		t.Fatal("CrawledAt not set")
	}

	second := got[1]
	if second.ID != "812345679" {
		t.Fatalf("second ID = %q, want 812345679", second.ID)
	}
	if second.Price != "22000" {
		t.Fatalf("second Price = %q, want raw price when no display value", second.Price)
	}
	if second.ImageURL != "https://cache.example.com/a4.jpg" {
		t.Fatalf("second ImageURL = %q, want thumbnail fallback", second.ImageURL)
	}
}

const domFallbackPage = `<html><body>
<div data-adid="555001">
  <h3>Skoda Octavia Combi</h3>
  <span class="result-price">€ 9.400</span>
  <span class="spec-year">2015</span>
  <span class="spec-mileage">140.000 km</span>
  <a href="/iad/gebrauchtwagen/d/skoda-555001"><img src="https://cache.example.com/skoda.jpg"></a>
</div>
<div class="teaser">no ad id here</div>
</body></html>`

func TestParseDOMFallback(t *testing.T) {
	p := New("https://www.willhaben.at/iad/gebrauchtwagen", "willhaben")
	got := p.Parse([]byte(domFallbackPage))

	if len(got) != 1 {
		t.Fatalf("parsed %d listings, want 1", len(got))
	}
	l := got[0]
	if l.ID != "555001" {
		t.Fatalf("ID = %q, want 555001", l.ID)
	}
	if l.Title != "Skoda Octavia Combi" {
		t.Fatalf("Title = %q", l.Title)
	}
	if l.Price != "€ 9.400" {
		t.Fatalf("Price = %q", l.Price)
	}
	if l.Year != "2015" {
		t.Fatalf("Year = %q", l.Year)
	}
	if l.Km != "140.000 km" {
		t.Fatalf("Km = %q", l.Km)
	}
	if l.Link != "https://www.willhaben.at/iad/gebrauchtwagen/d/skoda-555001" {
		t.Fatalf("Link = %q, want resolved absolute link", l.Link)
	}
	if l.ImageURL != "https://cache.example.com/skoda.jpg" {
		t.Fatalf("ImageURL = %q", l.ImageURL)
	}
}

func TestParseMalformedInput(t *testing.T) {
	p := New("https://www.willhaben.at", "willhaben")

	for name, body := range map[string][]byte{
		"empty":        nil,
		"not html":     []byte("%PDF-1.4 garbage"),
		"broken json":  []byte(`<script id="__NEXT_DATA__">{not json</script>`),
		"empty result": []byte(`<script id="__NEXT_DATA__">{"props":{"pageProps":{"searchResult":{"advertSummaryList":{"advertSummary":[]}}}}}</script>`),
	} {
		if got := p.Parse(body); len(got) != 0 {
			t.Errorf("%s: parsed %d listings, want 0", name, len(got))
		}
	}
}
