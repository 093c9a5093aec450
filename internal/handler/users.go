package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubexchange/clubexchange/internal/service"
)

// UserHandler handles HTTP requests for user endpoints.
type UserHandler struct {
	tradingSvc *service.TradingService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(tradingSvc *service.TradingService) *UserHandler {
	return &UserHandler{tradingSvc: tradingSvc}
}

// positionResponse is one holding in the portfolio response.
type positionResponse struct {
	Symbol string  `json:"symbol"`
	Shares int64   `json:"shares"`
	Price  float64 `json:"price"`
	Value  float64 `json:"value"`
}

// portfolioResponse is the JSON response for GET /users/{user_id}/portfolio.
type portfolioResponse struct {
	UserID    string             `json:"user_id"`
	Balance   float64            `json:"balance"`
	Positions []positionResponse `json:"positions"`
	NetWorth  float64            `json:"net_worth"`
}

// giftRequest is the JSON request body for POST /users/{user_id}/gift.
type giftRequest struct {
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// giftResponse is the JSON response for POST /users/{user_id}/gift.
type giftResponse struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Amount  float64 `json:"amount"`
	Balance float64 `json:"balance"`
}

// GetPortfolio handles GET /users/{user_id}/portfolio.
func (h *UserHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	p := h.tradingSvc.Portfolio(userID)
	positions := make([]positionResponse, len(p.Positions))
	for i, pos := range p.Positions {
		positions[i] = positionResponse{
			Symbol: pos.Symbol,
			Shares: pos.Shares,
			Price:  pos.Price,
			Value:  pos.Value,
		}
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{
		UserID:    p.UserID,
		Balance:   p.Balance,
		Positions: positions,
		NetWorth:  p.NetWorth,
	})
}

// Gift handles POST /users/{user_id}/gift.
func (h *UserHandler) Gift(w http.ResponseWriter, r *http.Request) {
	fromID := chi.URLParam(r, "user_id")

	var req giftRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.To == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "to is required")
		return
	}

	if err := h.tradingSvc.Gift(fromID, req.To, req.Amount); err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, giftResponse{
		From:    fromID,
		To:      req.To,
		Amount:  req.Amount,
		Balance: h.tradingSvc.Portfolio(fromID).Balance,
	})
}
