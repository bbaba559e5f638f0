package notify

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"

	resp "pricewatch/internal/lib/api/response"
	sl "pricewatch/internal/lib/logger"
	"pricewatch/internal/models"
)

type EmailSender interface {
	Send(n models.Notification) error
}

func New(
	log *slog.Logger,
	sender EmailSender,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var notification models.Notification

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := render.DecodeJSON(r.Body, &notification); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(notification); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("Invalid request", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(validateErr))

				return
			}

			log.Error("Failed to validate request", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if err := sender.Send(notification); err != nil {
			log.Error("Failed to send email",
				sl.Err(err),
				slog.String("user_email", notification.UserEmail),
				slog.String("store", notification.Store),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Failed to send email"))

			return
		}

		log.Info("Notification email sent",
			slog.String("user_email", notification.UserEmail),
			slog.String("store", notification.Store),
		)

		render.JSON(w, r, resp.OK())
	}
}
