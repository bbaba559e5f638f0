package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"pricewatch/internal/price"
)

// MercadoLivre shows the integer part and the cents in separate spans.
type MercadoLivre struct{}

func (MercadoLivre) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	fraction := strings.TrimSpace(doc.Find("span.andes-money-amount__fraction").First().Text())
	if fraction == "" {
		return decimal.Decimal{}, false
	}

	text := "R$ " + fraction
	if cents := strings.TrimSpace(doc.Find("span.andes-money-amount__cents").First().Text()); cents != "" {
		text += "," + cents
	}

	return price.Parse(text)
}

type Aliexpress struct{}

func (Aliexpress) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	text := strings.TrimSpace(doc.Find("span.price-default--current--F8OlYIo").First().Text())
	if text == "" {
		return decimal.Decimal{}, false
	}

	return price.Parse(text)
}

type Fastshop struct{}

func (Fastshop) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	text := strings.TrimSpace(doc.Find(`span[data-testid="price-value"]`).First().Text())
	if text == "" {
		return decimal.Decimal{}, false
	}

	return price.Parse(text)
}

// Americanas renders the price split across nested nodes, so the extracted
// text is whitespace-collapsed before parsing.
type Americanas struct{}

func (Americanas) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	text := strings.TrimSpace(doc.Find("div.ProductPrice_productPrice__vpgdo").First().Text())
	if text == "" {
		return decimal.Decimal{}, false
	}

	text = strings.Join(strings.Fields(text), " ")

	return price.Parse(text)
}

type Cea struct{}

func (Cea) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	text := strings.TrimSpace(doc.Find("p.cea-cea-store-theme-2-x-spotPriceShelf__price").First().Text())
	if text == "" {
		return decimal.Decimal{}, false
	}

	return price.Parse(text)
}
