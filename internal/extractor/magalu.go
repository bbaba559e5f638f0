package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"pricewatch/internal/price"
)

// maxFallbackCandidates bounds the currency-marker scan on pages where the
// primary selector is missing.
const maxFallbackCandidates = 5

// Magalu reads the Magazine Luiza price element. The page sometimes shows the
// installment form first ("ou R$ 1.234,56"), hence the prefix strip.
type Magalu struct{}

func (Magalu) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	text := strings.TrimSpace(doc.Find(`p[data-testid="price-value"]`).First().Text())
	if text != "" {
		text = strings.TrimSpace(strings.TrimPrefix(text, "ou "))

		if value, ok := price.Parse(text); ok {
			return value, true
		}
	}

	return price.ParseCandidates(currencyCandidates(doc, maxFallbackCandidates))
}
