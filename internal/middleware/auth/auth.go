package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	resp "pricewatch/internal/lib/api/response"
	"pricewatch/internal/lib/jwt"
	sl "pricewatch/internal/lib/logger"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// New guards the read API: requests must carry a valid Bearer token and the
// user id from its uid claim is placed on the request context.
func New(log *slog.Logger, jwtParser *jwt.JWTParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := jwtParser.ParseToken(r.Header.Get("Authorization"))
			if err != nil {
				log.Error("authorization failed", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID reads the authenticated user id set by the middleware.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
