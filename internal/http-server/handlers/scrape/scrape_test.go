package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"pricewatch/internal/scraper"
)

type fakeService struct {
	req    scraper.Request
	result scraper.Result
	err    error
}

func (s *fakeService) Scrape(_ context.Context, req scraper.Request) (scraper.Result, error) {
	s.req = req
	return s.result, s.err
}

func newRouter(svc *fakeService) *chi.Mux {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := chi.NewRouter()
	router.Post("/scrape/{store}", New(log, svc, validator.New(), time.Minute))

	return router
}

func doRequest(t *testing.T, router *chi.Mux, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/scrape/magalu", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestScrapeHandlerSuccess(t *testing.T) {
	svc := &fakeService{result: scraper.Result{
		Price:        nullDec("89.90"),
		DesiredPrice: nullDec("100"),
		SavedToDB:    true,
		EmailSent:    true,
	}}

	rec := doRequest(t, newRouter(svc), `{
		"url": "https://store/x",
		"userId": "u1",
		"name": "Headphones",
		"desiredPrice": 100,
		"notificationPlatform": "email",
		"userEmail": "user@example.com",
		"userName": "User"
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if svc.req.Store != "magalu" || svc.req.UserID != "u1" {
		t.Errorf("service request = %+v", svc.req)
	}
	if !svc.req.DesiredPrice.Valid || !svc.req.DesiredPrice.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("desired price = %+v", svc.req.DesiredPrice)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if body["price"] != 89.90 {
		t.Errorf("price = %v (%T), want 89.90 number", body["price"], body["price"])
	}
	if body["store"] != "magalu" || body["userId"] != "u1" {
		t.Errorf("identity fields: %v", body)
	}
	if body["saved_to_db"] != true || body["email_sent"] != true {
		t.Errorf("flags: %v", body)
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"].(string)); err != nil {
		t.Errorf("timestamp %v: %v", body["timestamp"], err)
	}
}

func TestScrapeHandlerSnakeCaseFields(t *testing.T) {
	svc := &fakeService{}

	rec := doRequest(t, newRouter(svc), `{
		"url": "https://store/x",
		"userId": "u1",
		"desired_price": 55.5,
		"notification_platform": "email",
		"user_email": "user@example.com",
		"user_name": "User"
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if !svc.req.DesiredPrice.Valid || !svc.req.DesiredPrice.Decimal.Equal(decimal.RequireFromString("55.5")) {
		t.Errorf("desired price = %+v", svc.req.DesiredPrice)
	}
	if svc.req.NotificationPlatform == nil || *svc.req.NotificationPlatform != "email" {
		t.Errorf("platform = %v", svc.req.NotificationPlatform)
	}
	if svc.req.UserEmail != "user@example.com" {
		t.Errorf("user email not forwarded: got %q", svc.req.UserEmail)
	}
	if svc.req.UserName != "User" {
		t.Errorf("user name not forwarded: got %q", svc.req.UserName)
	}
}

func TestScrapeHandlerCamelCaseContactWins(t *testing.T) {
	svc := &fakeService{}

	rec := doRequest(t, newRouter(svc), `{
		"url": "https://store/x",
		"userId": "u1",
		"userEmail": "camel@example.com",
		"user_email": "snake@example.com",
		"userName": "Camel",
		"user_name": "Snake"
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if svc.req.UserEmail != "camel@example.com" {
		t.Errorf("user email = %q, want camelCase spelling to win", svc.req.UserEmail)
	}
	if svc.req.UserName != "Camel" {
		t.Errorf("user name = %q, want camelCase spelling to win", svc.req.UserName)
	}
}

func TestScrapeHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing url", body: `{"userId": "u1"}`},
		{name: "missing user id", body: `{"url": "https://store/x"}`},
		{name: "bad url", body: `{"url": "not-a-url", "userId": "u1"}`},
		{name: "malformed json", body: `{broken`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newRouter(&fakeService{}), tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if body.Error == "" || body.Timestamp == "" {
				t.Errorf("error body incomplete: %+v", body)
			}
		})
	}
}

func TestScrapeHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unknown store", err: scraper.ErrUnknownStore, wantStatus: http.StatusBadRequest},
		{name: "fetch failure", err: errors.Join(scraper.ErrFetch, errors.New("403")), wantStatus: http.StatusBadGateway},
		{name: "internal", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newRouter(&fakeService{err: tt.err}), `{"url": "https://store/x", "userId": "u1"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if body.URL != "https://store/x" || body.Store != "magalu" {
				t.Errorf("error body = %+v", body)
			}
		})
	}
}

func TestScrapeHandlerLogFieldsDoNotAccumulate(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	router := chi.NewRouter()
	router.Post("/scrape/{store}", New(log, &fakeService{}, validator.New(), time.Minute))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/scrape/magalu", strings.NewReader(`{"url": "https://store/x", "userId": "u1"}`))
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Count(line, "op=handlers.scrape.New") > 1 {
			t.Errorf("request-scoped log attrs leaked across requests: %s", line)
		}
	}
}

func TestScrapeHandlerNullPrice(t *testing.T) {
	svc := &fakeService{result: scraper.Result{SavedToDB: true}}

	rec := doRequest(t, newRouter(svc), `{"url": "https://store/x", "userId": "u1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if body["price"] != nil {
		t.Errorf("price = %v, want null", body["price"])
	}
}
