// Package scraper runs the scrape pipeline: fetch the rendered page, extract
// and normalize the price, upsert the monitor plus its history, and fire a
// notification when the price is below the user's threshold. The same
// pipeline serves HTTP requests and scheduled mine tasks.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"pricewatch/internal/extractor"
	"pricewatch/internal/fetcher"
	sl "pricewatch/internal/lib/logger"
	"pricewatch/internal/models"
)

var (
	ErrUnknownStore = errors.New("unknown store")

	// ErrFetch marks scraping-backend failures so handlers can answer 502.
	ErrFetch = errors.New("page fetch failed")
)

type Storage interface {
	UpsertMonitor(ctx context.Context, m models.MonitorUpdate) (int64, error)
	DesiredPrice(ctx context.Context, userID, url string) (decimal.NullDecimal, error)
}

type Notifier interface {
	Notify(ctx context.Context, n models.Notification) bool
}

// StorePipeline binds one store's extractor to the fetcher configured for it.
type StorePipeline struct {
	Extractor extractor.Extractor
	Fetcher   fetcher.Fetcher
}

type Service struct {
	log      *slog.Logger
	stores   map[string]StorePipeline
	storage  Storage
	notifier Notifier
}

func New(log *slog.Logger, stores map[string]StorePipeline, storage Storage, notifier Notifier) *Service {
	return &Service{
		log:      log,
		stores:   stores,
		storage:  storage,
		notifier: notifier,
	}
}

// Request is one scrape invocation. Optional fields that are absent stay
// untouched in the store.
type Request struct {
	Store                string
	UserID               string
	URL                  string
	Name                 *string
	DesiredPrice         decimal.NullDecimal
	NotificationPlatform *string
	UserEmail            string
	UserName             string
}

// Result reports what the pipeline observed and managed to do. Persistence
// and notification failures are flags here, not errors.
type Result struct {
	Price        decimal.NullDecimal
	DesiredPrice decimal.NullDecimal
	SavedToDB    bool
	EmailSent    bool
}

func (s *Service) Scrape(ctx context.Context, req Request) (Result, error) {
	const op = "scraper.Scrape"

	log := s.log.With(
		slog.String("op", op),
		slog.String("store", req.Store),
		slog.String("user_id", req.UserID),
		slog.String("url", req.URL),
	)

	pipeline, ok := s.stores[req.Store]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownStore, req.Store)
	}

	html, err := pipeline.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrFetch, err)
	}

	price := s.extract(log, pipeline, html)

	// Without an explicit threshold in the request, a previously stored one
	// keeps applying across scrapes.
	desired := req.DesiredPrice
	if !desired.Valid {
		stored, err := s.storage.DesiredPrice(ctx, req.UserID, req.URL)
		if err != nil {
			log.Error("desired price lookup failed", sl.Err(err))
		} else {
			desired = stored
		}
	}

	saved := true
	_, err = s.storage.UpsertMonitor(ctx, models.MonitorUpdate{
		UserID:               req.UserID,
		URL:                  req.URL,
		Store:                req.Store,
		Price:                price,
		Name:                 req.Name,
		DesiredPrice:         desired,
		NotificationPlatform: req.NotificationPlatform,
	})
	if err != nil {
		// A scrape that found a price is still useful to the caller, so
		// persistence failures degrade to saved_to_db=false.
		log.Error("failed to save monitor", sl.Err(err))
		saved = false
	}

	result := Result{
		Price:        price,
		DesiredPrice: desired,
		SavedToDB:    saved,
	}

	if s.shouldNotify(req, result) {
		result.EmailSent = s.notifier.Notify(ctx, models.Notification{
			UserEmail:    req.UserEmail,
			UserName:     req.UserName,
			UserID:       req.UserID,
			ProductName:  productName(req),
			CurrentPrice: price.Decimal,
			DesiredPrice: desired.Decimal,
			ProductURL:   req.URL,
			Store:        req.Store,
		})
	}

	log.Info("scrape finished",
		slog.Any("price", price),
		slog.Bool("saved_to_db", result.SavedToDB),
		slog.Bool("email_sent", result.EmailSent),
	)

	return result, nil
}

func (s *Service) extract(log *slog.Logger, pipeline StorePipeline, html string) decimal.NullDecimal {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Error("failed to parse html", sl.Err(err))
		return decimal.NullDecimal{}
	}

	value, found := pipeline.Extractor.ExtractPrice(doc)
	if !found {
		// An extraction miss is not an error: the monitor still gets its
		// timestamps refreshed and the response carries a null price.
		log.Warn("no price found in page")
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: value, Valid: true}
}

func (s *Service) shouldNotify(req Request, result Result) bool {
	if !result.Price.Valid || !result.DesiredPrice.Valid {
		return false
	}
	if !result.Price.Decimal.LessThan(result.DesiredPrice.Decimal) {
		return false
	}
	if req.NotificationPlatform == nil || *req.NotificationPlatform != models.NotificationPlatformEmail {
		return false
	}

	return req.UserEmail != "" && req.UserName != ""
}

func productName(req Request) string {
	if req.Name != nil && *req.Name != "" {
		return *req.Name
	}
	return req.URL
}

// HandleMineTask runs the pipeline for one scheduled re-scrape from the mine
// queue. Fetch failures surface as errors so the message is requeued.
func (s *Service) HandleMineTask(ctx context.Context, body []byte) error {
	const op = "scraper.HandleMineTask"

	var task models.MineTask

	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("%s: invalid message format: %w", op, err)
	}

	_, err := s.Scrape(ctx, Request{
		Store:  task.Store,
		UserID: task.UserID,
		URL:    task.URL,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
