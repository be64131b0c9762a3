package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"phonemarket-bot/internal/market"
	"phonemarket-bot/internal/model"
	"phonemarket-bot/pkg/apierror"
	"phonemarket-bot/pkg/response"

	"github.com/go-chi/chi/v5"
)

// MarketHandler exposes per-user market state to operators.
type MarketHandler struct {
	market *market.Service
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(svc *market.Service) *MarketHandler {
	return &MarketHandler{market: svc}
}

func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apierror.ValidationError("invalid user_id",
			apierror.FieldError{Field: "user_id", Message: "must be a Telegram user id"})
	}
	return id, nil
}

// OffersResponse is the current cycle of one user.
type OffersResponse struct {
	UserID      int64         `json:"user_id"`
	Offers      []model.Offer `json:"offers"`
	NextRefresh time.Time     `json:"next_refresh"`
}

// GetOffers handles GET /api/v1/users/{user_id}/offers
func (h *MarketHandler) GetOffers(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	offers, err := h.market.CurrentOffers(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, OffersResponse{
		UserID:      userID,
		Offers:      offers,
		NextRefresh: h.market.NextRefresh(),
	})
}

// GetInventory handles GET /api/v1/users/{user_id}/inventory
func (h *MarketHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.market.User(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.market.Inventory(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}

	response.OK(w, map[string]interface{}{
		"user":  user,
		"items": items,
	})
}

// CreditRequest is the body of a balance credit.
type CreditRequest struct {
	Amount int64 `json:"amount"`
}

// Credit handles POST /api/v1/users/{user_id}/credit
func (h *MarketHandler) Credit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreditRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON"))
		return
	}

	balance, err := h.market.Credit(r.Context(), userID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}
