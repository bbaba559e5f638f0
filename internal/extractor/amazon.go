package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"pricewatch/internal/price"
)

// Amazon tries the buy-box price first, then the core price block, then any
// offscreen price span that looks like a money amount.
type Amazon struct{}

func (Amazon) ExtractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	if text := strings.TrimSpace(doc.Find("#apex_offerDisplay_desktop .a-price .a-offscreen").First().Text()); text != "" {
		return price.Parse(text)
	}

	if text := strings.TrimSpace(doc.Find("#corePrice_feature_div .a-price .a-offscreen").First().Text()); text != "" {
		return price.Parse(text)
	}

	var found string

	doc.Find("span.a-offscreen").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" && (strings.Contains(text, "R$") || strings.Contains(text, ",")) {
			found = text
			return false
		}
		return true
	})

	if found == "" {
		return decimal.Decimal{}, false
	}

	return price.Parse(found)
}
