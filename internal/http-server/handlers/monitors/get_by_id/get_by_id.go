package getByID

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
	Monitor models.Monitor `json:"monitor"`
}

type MonitorGetter interface {
	MonitorByID(ctx context.Context, monitorID int64, userID string) (models.Monitor, error)
}

func New(
	log *slog.Logger,
	monitorGetter MonitorGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.monitors.get_by_id.New"

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

		monitor, err := monitorGetter.MonitorByID(ctx, monitorID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrMonitorNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Monitor not found"))

				return
			}

			log.Error("Failed to get monitor",
				sl.Err(err),
				slog.String("user_id", userID),
				slog.Int64("monitor_id", monitorID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		w.Header().Set("Cache-Control", "private, max-age=60")

		log.Info("Monitor retrieved successfully",
			slog.String("user_id", userID),
			slog.Int64("monitor_id", monitorID),
		)

		ResponseOK(w, r, monitor)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, monitor models.Monitor) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Monitor:  monitor,
	})
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
