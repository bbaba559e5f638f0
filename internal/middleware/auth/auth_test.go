package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"pricewatch/internal/lib/jwt"
)

const secret = "test-secret"

func signToken(t *testing.T, uid string) string {
	t.Helper()

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"uid": uid,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return signed
}

func newHandler(t *testing.T) (http.Handler, *string) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			t.Error("user id missing from context")
		}
		gotUserID = userID
	})

	return New(log, jwt.New(secret))(next), &gotUserID
}

func TestAuthSetsUserID(t *testing.T) {
	handler, gotUserID := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/monitors", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if *gotUserID != "u1" {
		t.Errorf("user id = %q, want u1", *gotUserID)
	}
}

func TestAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := slog.New(slog.NewTextHandler(io.Discard, nil))

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			handler := New(log, jwt.New(secret))(next)

			req := httptest.NewRequest(http.MethodGet, "/monitors", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("next handler must not run")
			}
		})
	}
}
