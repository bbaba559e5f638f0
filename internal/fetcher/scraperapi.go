package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"pricewatch/internal/config"
)

// ScraperAPI fetches pages through api.scraperapi.com. Stores with
// client-side rendered prices need render=true, which is much slower.
type ScraperAPI struct {
	client *resty.Client
	apiKey string
	render bool
}

func NewScraperAPI(cfg config.ScraperAPI, render bool) *ScraperAPI {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout)

	return &ScraperAPI{
		client: client,
		apiKey: cfg.APIKey,
		render: render,
	}
}

func (f *ScraperAPI) Fetch(ctx context.Context, url string) (string, error) {
	const op = "fetcher.ScraperAPI.Fetch"

	req := f.client.R().
		SetContext(ctx).
		SetQueryParam("api_key", f.apiKey).
		SetQueryParam("url", url)

	if f.render {
		req.SetQueryParam("render", "true")
	}

	resp, err := req.Get("/")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%s: %w", op, &FetchError{
			Status: resp.StatusCode(),
			Body:   resp.String(),
		})
	}

	return resp.String(), nil
}
