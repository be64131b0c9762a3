package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"phonemarket-bot/internal/market"
	"phonemarket-bot/pkg/apierror"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{market.ErrUserNotFound, http.StatusNotFound},
		{market.ErrSlotNotFound, http.StatusNotFound},
		{market.ErrOfferChanged, http.StatusConflict},
		{market.ErrPhoneLimit, http.StatusConflict},
		{market.ErrInsufficientFunds, http.StatusConflict},
		{fmt.Errorf("%w: 9 is not within 1..6", market.ErrInvalidSlot), http.StatusBadRequest},
		{market.ErrInvalidAmount, http.StatusBadRequest},
		{market.ErrNoOffers, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
		{apierror.Unauthorized(""), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := toAPIError(tt.err); got.StatusCode != tt.want {
			t.Errorf("toAPIError(%v) = %d, want %d", tt.err, got.StatusCode, tt.want)
		}
	}

	if got := toAPIError(market.ErrNoOffers); got.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %s", got.Code)
	}
	if got := toAPIError(errors.New("secret dsn in message")); got.Message == "secret dsn in message" {
		t.Error("internal error messages must not leak")
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, market.ErrOfferChanged)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	env := decode(t, rec)
	if env.Success || env.Error == nil || env.Error.Message != market.ErrOfferChanged.Error() {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
