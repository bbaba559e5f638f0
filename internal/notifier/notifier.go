// Package notifier delivers price-drop alerts. The pipeline posts the alert
// to the notification service over HTTP; the service itself sends the email.
package notifier

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"pricewatch/internal/config"
	sl "pricewatch/internal/lib/logger"
	"pricewatch/internal/models"
)

// Client is a fire-and-forget HTTP client for the notification endpoint.
// Failures are logged and reported as false, never retried or escalated.
type Client struct {
	log    *slog.Logger
	client *resty.Client
}

func New(log *slog.Logger, cfg config.Notification) *Client {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout)

	return &Client{
		log:    log,
		client: client,
	}
}

func (c *Client) Notify(ctx context.Context, n models.Notification) bool {
	const op = "notifier.Notify"

	log := c.log.With(
		slog.String("op", op),
		slog.String("user_id", n.UserID),
		slog.String("store", n.Store),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(n).
		Post("")
	if err != nil {
		log.Error("notification request failed", sl.Err(err))
		return false
	}

	if resp.StatusCode() != http.StatusOK {
		log.Error("notification rejected",
			slog.Int("status", resp.StatusCode()),
			slog.String("body", resp.String()),
		)
		return false
	}

	log.Info("notification sent", slog.String("user_email", n.UserEmail))

	return true
}
