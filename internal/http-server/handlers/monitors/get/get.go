package getMonitors

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	resp "pricewatch/internal/lib/api/response"
	sl "pricewatch/internal/lib/logger"
	authMiddleware "pricewatch/internal/middleware/auth"
	"pricewatch/internal/models"
)

const (
	defaultLimit  = 20
	maxLimit      = 100
	defaultOffset = 0
)

type Response struct {
	resp.Response
	Monitors   []models.Monitor `json:"monitors"`
	Pagination Pagination       `json:"pagination"`
}

type Pagination struct {
	Limit      int64 `json:"limit"`
	Offset     int64 `json:"offset"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

type MonitorsGetter interface {
	MonitorsByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Monitor, int64, error)
}

func New(
	log *slog.Logger,
	monitorsGetter MonitorsGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.monitors.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		limit := parseLimit(r)
		offset := parseOffset(r)

		userID, ok := authMiddleware.UserID(r.Context())
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		monitors, total, err := monitorsGetter.MonitorsByUser(ctx, userID, limit, offset)
		if err != nil {
			log.Error("Failed to get monitors",
				sl.Err(err),
				slog.String("user_id", userID),
				slog.Int64("limit", limit),
				slog.Int64("offset", offset),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if monitors == nil {
			monitors = []models.Monitor{}
		}

		log.Info("Monitors retrieved successfully",
			slog.String("user_id", userID),
			slog.Int("count", len(monitors)),
			slog.Int64("total", total),
		)

		w.Header().Set("Cache-Control", "private, max-age=60")

		ResponseOK(w, r, monitors, limit, offset, total)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, monitors []models.Monitor, limit, offset, total int64) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Monitors: monitors,
		Pagination: Pagination{
			Limit:      limit,
			Offset:     offset,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
			HasMore:    offset+int64(len(monitors)) < total,
		},
	})
}

func parseLimit(r *http.Request) int64 {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultLimit
	}

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 {
		return defaultLimit
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}

func parseOffset(r *http.Request) int64 {
	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		return defaultOffset
	}

	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil || offset < 0 {
		return defaultOffset
	}

	return offset
}
