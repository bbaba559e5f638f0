package notify

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/go-playground/validator/v10"

	"pricewatch/internal/models"
)

type fakeSender struct {
	sent []models.Notification
	err  error
}

func (s *fakeSender) Send(n models.Notification) error {
	s.sent = append(s.sent, n)
	return s.err
}

func doRequest(t *testing.T, sender *fakeSender, body string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := New(log, sender, validator.New())

	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	return rec
}

const validBody = `{
	"user_email": "user@example.com",
	"user_name": "User",
	"user_id": "u1",
	"product_name": "Headphones",
	"current_price": 89.90,
	"desired_price": 100,
	"product_url": "https://store/x",
	"store": "magalu"
}`

func TestNotifySuccess(t *testing.T) {
	sender := &fakeSender{}

	rec := doRequest(t, sender, validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("emails = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].UserEmail != "user@example.com" {
		t.Errorf("recipient = %q", sender.sent[0].UserEmail)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "OK" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestNotifyValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing email", body: `{"user_name": "User", "product_url": "https://store/x"}`},
		{name: "bad email", body: `{"user_email": "nope", "user_name": "User", "product_url": "https://store/x"}`},
		{name: "missing url", body: `{"user_email": "user@example.com", "user_name": "User"}`},
		{name: "malformed json", body: `{broken`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}

			rec := doRequest(t, sender, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if len(sender.sent) != 0 {
				t.Error("no email must be sent")
			}
		})
	}
}

func TestNotifySendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}

	rec := doRequest(t, sender, validBody)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
