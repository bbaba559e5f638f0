package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"pricewatch/internal/config"
)

// Zyte fetches pages through api.zyte.com/v1/extract with browser rendering.
type Zyte struct {
	client *resty.Client
}

type zyteRequest struct {
	URL         string `json:"url"`
	BrowserHTML bool   `json:"browserHtml"`
}

type zyteResponse struct {
	BrowserHTML string `json:"browserHtml"`
}

func NewZyte(cfg config.Zyte) *Zyte {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.APIKey, "")

	return &Zyte{client: client}
}

func (f *Zyte) Fetch(ctx context.Context, url string) (string, error) {
	const op = "fetcher.Zyte.Fetch"

	var body zyteResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(zyteRequest{URL: url, BrowserHTML: true}).
		SetResult(&body).
		Post("")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%s: %w", op, &FetchError{
			Status: resp.StatusCode(),
			Body:   resp.String(),
		})
	}

	if body.BrowserHTML == "" {
		return "", fmt.Errorf("%s: browserHtml missing in response", op)
	}

	return body.BrowserHTML, nil
}
