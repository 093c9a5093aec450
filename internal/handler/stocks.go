package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/service"
)

// StockHandler handles HTTP requests for public stock endpoints.
type StockHandler struct {
	tradingSvc *service.TradingService
	listingSvc *service.ListingService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(tradingSvc *service.TradingService, listingSvc *service.ListingService) *StockHandler {
	return &StockHandler{tradingSvc: tradingSvc, listingSvc: listingSvc}
}

// stockResponse is one listed symbol in JSON responses.
type stockResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Owner  string  `json:"owner,omitempty"`
}

// historyResponse is the JSON response for GET /stocks/{symbol}/history.
type historyResponse struct {
	Symbol  string    `json:"symbol"`
	History []float64 `json:"history"`
}

// tradeResponse is the JSON response for buy and sell endpoints.
type tradeResponse struct {
	TradeID string  `json:"trade_id"`
	UserID  string  `json:"user_id"`
	Symbol  string  `json:"symbol"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Balance float64 `json:"balance"`
}

// ipoRequest is the JSON request body for POST /stocks.
type ipoRequest struct {
	UserID string `json:"user_id"`
	Symbol string `json:"symbol"`
}

// ipoResponse is the JSON response for POST /stocks.
type ipoResponse struct {
	Symbol  string   `json:"symbol"`
	Owner   string   `json:"owner"`
	Price   float64  `json:"price"`
	Cost    float64  `json:"cost"`
	Balance float64  `json:"balance"`
	Decayed []string `json:"decayed,omitempty"`
}

// tradeRequest is the JSON request body for buy and sell endpoints.
type tradeRequest struct {
	UserID string `json:"user_id"`
}

// riskResponse is one entry of the decay-risk preview.
type riskResponse struct {
	Symbol string  `json:"symbol"`
	Risk   float64 `json:"risk"`
}

// List handles GET /stocks.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	quotes := h.tradingSvc.ListStocks()
	stocks := make([]stockResponse, len(quotes))
	for i, q := range quotes {
		stocks[i] = stockResponse{Symbol: q.Symbol, Price: q.Price, Owner: q.Owner}
	}
	WriteJSON(w, http.StatusOK, map[string][]stockResponse{"stocks": stocks})
}

// GetPrice handles GET /stocks/{symbol}/price.
func (h *StockHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	q, err := h.tradingSvc.Quote(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stockResponse{Symbol: q.Symbol, Price: q.Price, Owner: q.Owner})
}

// GetHistory handles GET /stocks/{symbol}/history.
func (h *StockHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	history, err := h.tradingSvc.History(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, historyResponse{
		Symbol:  domain.NormalizeSymbol(symbol),
		History: history,
	})
}

// IPO handles POST /stocks.
func (h *StockHandler) IPO(w http.ResponseWriter, r *http.Request) {
	var req ipoRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	resp, err := h.listingSvc.IPO(req.UserID, req.Symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ipoResponse{
		Symbol:  resp.Symbol,
		Owner:   resp.Owner,
		Price:   resp.Price,
		Cost:    resp.Cost,
		Balance: resp.Balance,
		Decayed: resp.Decayed,
	})
}

// Buy handles POST /stocks/{symbol}/buy.
func (h *StockHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.tradingSvc.Buy)
}

// Sell handles POST /stocks/{symbol}/sell.
func (h *StockHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.tradingSvc.Sell)
}

func (h *StockHandler) trade(
	w http.ResponseWriter,
	r *http.Request,
	exec func(userID, symbol string) (*service.TradeReceipt, error),
) {
	symbol := chi.URLParam(r, "symbol")

	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	receipt, err := exec(req.UserID, symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tradeResponse{
		TradeID: receipt.TradeID,
		UserID:  receipt.UserID,
		Symbol:  receipt.Symbol,
		Side:    receipt.Side,
		Price:   receipt.Price,
		Balance: receipt.Balance,
	})
}

// DecayRisk handles GET /stocks/decay-risk.
func (h *StockHandler) DecayRisk(w http.ResponseWriter, r *http.Request) {
	risks, err := h.listingSvc.DecayRisk()
	if err != nil {
		mapDomainError(w, err)
		return
	}
	out := make([]riskResponse, len(risks))
	for i, rs := range risks {
		out[i] = riskResponse{Symbol: rs.Symbol, Risk: rs.Risk}
	}
	WriteJSON(w, http.StatusOK, map[string][]riskResponse{"at_risk": out})
}

// mapDomainError maps domain errors to HTTP responses.
func mapDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnknownSymbol):
		WriteError(w, http.StatusNotFound, "symbol_not_found", err.Error())
	case errors.Is(err, domain.ErrUnknownUser):
		WriteError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateSymbol):
		WriteError(w, http.StatusConflict, "symbol_exists", err.Error())
	case errors.Is(err, domain.ErrDuplicateOwner):
		WriteError(w, http.StatusConflict, "owner_has_listing", err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		WriteError(w, http.StatusBadRequest, "invalid_price", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientHoldings):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_holdings", err.Error())
	case errors.Is(err, domain.ErrDependencyUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "dependency_unavailable", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
