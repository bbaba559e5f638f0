// Package price normalizes scraped price strings into decimal values.
//
// Store pages mix two conventions: the Brazilian one ("R$ 1.234,56", comma is
// the decimal separator) and the plain one ("1234.56" or "1.234" with period
// thousands separators). Parse tells them apart and never returns an error:
// anything unparseable is simply "no value".
package price

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyPattern = regexp.MustCompile(`[R$\s]`)
	valuePattern    = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)
)

// installmentWords mark texts that show an installment plan ("10x de R$ ...")
// rather than the spot price.
var installmentWords = []string{"10x", "cartão", "em", "vezes"}

// Parse converts a raw price text to a decimal amount. The second return is
// false when no numeric price can be recovered.
func Parse(text string) (decimal.Decimal, bool) {
	if text == "" {
		return decimal.Decimal{}, false
	}

	clean := currencyPattern.ReplaceAllString(text, "")

	if strings.Contains(clean, ",") {
		// Comma is the decimal separator, periods are thousands separators.
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		// A single period followed by exactly two digits is a decimal
		// separator; any other period layout means thousands separators.
		parts := strings.Split(clean, ".")
		if len(parts) != 2 || len(parts[1]) != 2 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	match := valuePattern.FindString(clean)
	if match == "" {
		return decimal.Decimal{}, false
	}

	value, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Decimal{}, false
	}

	return value, true
}

// ParseCandidates tries each candidate text in order, skipping installment
// wording, and returns the first successful parse.
func ParseCandidates(texts []string) (decimal.Decimal, bool) {
	for _, text := range texts {
		if text == "" || HasInstallmentWording(text) {
			continue
		}

		if value, ok := Parse(text); ok {
			return value, true
		}
	}

	return decimal.Decimal{}, false
}

func HasInstallmentWording(text string) bool {
	lower := strings.ToLower(text)

	for _, word := range installmentWords {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}
