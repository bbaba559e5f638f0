package history

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	resp "pricewatch/internal/lib/api/response"
	sl "pricewatch/internal/lib/logger"
	authMiddleware "pricewatch/internal/middleware/auth"
	"pricewatch/internal/models"
	"pricewatch/internal/storage"
)

type Response struct {
	resp.Response
	MonitorID int64                      `json:"monitor_id"`
	History   []models.PriceHistoryEntry `json:"history"`
}

type HistoryGetter interface {
	History(ctx context.Context, monitorID int64, userID string) ([]models.PriceHistoryEntry, error)
}

func New(
	log *slog.Logger,
	historyGetter HistoryGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.monitors.history.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		monitorID := parseMonitorID(r)
		if monitorID == -1 {
			log.Error("Invalid id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id"))

			return
		}

		userID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		entries, err := historyGetter.History(ctx, monitorID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrMonitorNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Monitor not found"))

				return
			}

			log.Error("Failed to get price history",
				sl.Err(err),
				slog.String("user_id", userID),
				slog.Int64("monitor_id", monitorID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if entries == nil {
			entries = []models.PriceHistoryEntry{}
		}

		log.Info("Price history retrieved successfully",
			slog.String("user_id", userID),
			slog.Int64("monitor_id", monitorID),
			slog.Int("count", len(entries)),
		)

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			MonitorID: monitorID,
			History:   entries,
		})
	}
}

func parseMonitorID(r *http.Request) int64 {
	monitorIDStr := chi.URLParam(r, "id")
	if monitorIDStr == "" {
		return -1
	}

	monitorID, err := strconv.ParseInt(monitorIDStr, 10, 64)
	if err != nil || monitorID < 0 {
		return -1
	}

	return monitorID
}
