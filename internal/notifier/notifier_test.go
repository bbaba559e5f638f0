package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/config"
	"pricewatch/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNotification() models.Notification {
	return models.Notification{
		UserEmail:    "user@example.com",
		UserName:     "User",
		UserID:       "u1",
		ProductName:  "Headphones",
		CurrentPrice: decimal.NewFromFloat(89.90),
		DesiredPrice: decimal.NewFromInt(100),
		ProductURL:   "https://store/x",
		Store:        "magalu",
	}
}

func TestNotifySuccess(t *testing.T) {
	var got models.Notification

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(discardLogger(), config.Notification{Endpoint: srv.URL, Timeout: time.Second})

	if !c.Notify(context.Background(), testNotification()) {
		t.Fatal("Notify should report success")
	}

	if got.UserEmail != "user@example.com" || got.Store != "magalu" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if !got.CurrentPrice.Equal(decimal.NewFromFloat(89.90)) {
		t.Errorf("current price = %s, want 89.90", got.CurrentPrice)
	}
}

func TestNotifyNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "smtp down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(discardLogger(), config.Notification{Endpoint: srv.URL, Timeout: time.Second})

	if c.Notify(context.Background(), testNotification()) {
		t.Error("Notify should report failure on non-200")
	}
}

func TestNotifyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(discardLogger(), config.Notification{Endpoint: srv.URL, Timeout: time.Second})

	if c.Notify(context.Background(), testNotification()) {
		t.Error("Notify should report failure on transport error")
	}
}
