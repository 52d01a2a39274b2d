package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func TestCheckoutRejectsNonPost(t *testing.T) {
	h := NewSubscriptionHandler(nil, validator.New(), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Checkout(rec, httptest.NewRequest(http.MethodGet, "/subscriptions/checkout", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for GET checkout, got %d", rec.Code)
	}
}

func TestPortalRejectsNonGet(t *testing.T) {
	h := NewSubscriptionHandler(nil, validator.New(), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Portal(rec, httptest.NewRequest(http.MethodPost, "/subscriptions/portal", strings.NewReader("{}")))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for POST portal, got %d", rec.Code)
	}
}
