// Package extractor locates the displayed price inside rendered store pages.
// Each store has its own selector strategy; all of them feed the shared
// price normalizer.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"pricewatch/internal/models"
)

// Backends supported by the page fetcher.
const (
	BackendScraperAPI = "scraperapi"
	BackendZyte       = "zyte"
)

// Extractor pulls the displayed price out of a parsed document.
type Extractor interface {
	ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool)
}

// Store describes how one store is scraped: which backend fetches the page,
// whether it needs browser rendering and which extractor reads the price.
type Store struct {
	Name      string
	Backend   string
	Render    bool
	Extractor Extractor
}

// Registry maps store identifiers to their scraping descriptors.
func Registry() map[string]Store {
	return map[string]Store{
		models.StoreAmazon:       {Name: models.StoreAmazon, Backend: BackendScraperAPI, Extractor: Amazon{}},
		models.StoreMercadoLivre: {Name: models.StoreMercadoLivre, Backend: BackendScraperAPI, Extractor: MercadoLivre{}},
		models.StoreAliexpress:   {Name: models.StoreAliexpress, Backend: BackendScraperAPI, Render: true, Extractor: Aliexpress{}},
		models.StoreMagalu:       {Name: models.StoreMagalu, Backend: BackendScraperAPI, Render: true, Extractor: Magalu{}},
		models.StoreFastshop:     {Name: models.StoreFastshop, Backend: BackendScraperAPI, Render: true, Extractor: Fastshop{}},
		models.StoreCea:          {Name: models.StoreCea, Backend: BackendScraperAPI, Render: true, Extractor: Cea{}},
		models.StoreAmericanas:   {Name: models.StoreAmericanas, Backend: BackendZyte, Render: true, Extractor: Americanas{}},
	}
}

// currencyCandidates collects up to limit text nodes containing the currency
// marker, used as a fallback when the primary selector finds nothing.
func currencyCandidates(doc *goquery.Document, limit int) []string {
	var out []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}

		if n.Type == html.TextNode && strings.Contains(n.Data, "R$") {
			if text := strings.TrimSpace(n.Data); text != "" {
				out = append(out, text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}

	return out
}
