// Package fetcher obtains rendered product-page HTML through an external
// scraping service. Two interchangeable backends exist: ScraperAPI (GET with
// an optional render flag) and Zyte (POST returning browser HTML in JSON).
package fetcher

import (
	"context"
	"fmt"
)

// Fetcher returns the rendered HTML document for a product URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchError is a non-success response from the scraping backend.
type FetchError struct {
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("scraping backend returned status %d: %s", e.Status, e.Body)
}
