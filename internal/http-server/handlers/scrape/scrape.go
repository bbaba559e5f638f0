package scrape

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	sl "pricewatch/internal/lib/logger"
	"pricewatch/internal/scraper"
)

// Request accepts both the camelCase and snake_case spellings clients send
// for the optional fields. camelCase wins when both are present.
type Request struct {
	URL                       string           `json:"url" validate:"required,url"`
	UserID                    string           `json:"userId" validate:"required"`
	Name                      *string          `json:"name"`
	DesiredPrice              *decimal.Decimal `json:"desiredPrice"`
	DesiredPriceSnake         *decimal.Decimal `json:"desired_price"`
	NotificationPlatform      *string          `json:"notificationPlatform"`
	NotificationPlatformSnake *string          `json:"notification_platform"`
	UserEmail                 string           `json:"userEmail"`
	UserEmailSnake            string           `json:"user_email"`
	UserName                  string           `json:"userName"`
	UserNameSnake             string           `json:"user_name"`
}

type Response struct {
	Price                decimal.NullDecimal `json:"price"`
	URL                  string              `json:"url"`
	Name                 *string             `json:"name"`
	DesiredPrice         decimal.NullDecimal `json:"desiredPrice"`
	NotificationPlatform *string             `json:"notificationPlatform"`
	UserID               string              `json:"userId"`
	Store                string              `json:"store"`
	SavedToDB            bool                `json:"saved_to_db"`
	EmailSent            bool                `json:"email_sent"`
	Timestamp            string              `json:"timestamp"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	URL       string `json:"url,omitempty"`
	Store     string `json:"store,omitempty"`
	Timestamp string `json:"timestamp"`
}

type Scraper interface {
	Scrape(ctx context.Context, req scraper.Request) (scraper.Result, error)
}

func New(
	log *slog.Logger,
	svc Scraper,
	validate *validator.Validate,
	timeout time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scrape.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		store := chi.URLParam(r, "store")

		var req Request

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			respondError(w, r, http.StatusBadRequest, "Failed to decode request", "", store)

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("Invalid request", sl.Err(err))

				respondError(w, r, http.StatusBadRequest, validationMessage(validateErr), req.URL, store)

				return
			}

			log.Error("Failed to validate request", sl.Err(err))

			respondError(w, r, http.StatusInternalServerError, "Internal error", req.URL, store)

			return
		}

		log.Info("Request body decoded",
			slog.String("store", store),
			slog.String("url", req.URL),
			slog.String("user_id", req.UserID),
		)

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		result, err := svc.Scrape(ctx, scraper.Request{
			Store:                store,
			UserID:               req.UserID,
			URL:                  req.URL,
			Name:                 req.Name,
			DesiredPrice:         desiredPrice(req),
			NotificationPlatform: notificationPlatform(req),
			UserEmail:            userEmail(req),
			UserName:             userName(req),
		})
		if err != nil {
			switch {
			case errors.Is(err, scraper.ErrUnknownStore):
				log.Error("Unknown store", slog.String("store", store))

				respondError(w, r, http.StatusBadRequest, "Unknown store: "+store, req.URL, store)

			case errors.Is(err, scraper.ErrFetch):
				log.Error("Failed to fetch page", sl.Err(err))

				respondError(w, r, http.StatusBadGateway, "Failed to fetch page", req.URL, store)

			default:
				log.Error("Scrape failed", sl.Err(err))

				respondError(w, r, http.StatusInternalServerError, "Internal error", req.URL, store)
			}

			return
		}

		render.JSON(w, r, Response{
			Price:                result.Price,
			URL:                  req.URL,
			Name:                 req.Name,
			DesiredPrice:         result.DesiredPrice,
			NotificationPlatform: notificationPlatform(req),
			UserID:               req.UserID,
			Store:                store,
			SavedToDB:            result.SavedToDB,
			EmailSent:            result.EmailSent,
			Timestamp:            time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg, url, store string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:     msg,
		URL:       url,
		Store:     store,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func validationMessage(errs validator.ValidationErrors) string {
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			return "Missing required field: " + err.Field()
		case "url":
			return "Field " + err.Field() + " is not a valid URL"
		}
	}

	return "Invalid request"
}

func desiredPrice(req Request) decimal.NullDecimal {
	value := req.DesiredPrice
	if value == nil {
		value = req.DesiredPriceSnake
	}

	if value == nil {
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: *value, Valid: true}
}

func notificationPlatform(req Request) *string {
	if req.NotificationPlatform != nil {
		return req.NotificationPlatform
	}

	return req.NotificationPlatformSnake
}

func userEmail(req Request) string {
	if req.UserEmail != "" {
		return req.UserEmail
	}

	return req.UserEmailSnake
}

func userName(req Request) string {
	if req.UserName != "" {
		return req.UserName
	}

	return req.UserNameSnake
}
