package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/service"
)

// AdminHandler handles HTTP requests for admin endpoints.
type AdminHandler struct {
	listingSvc *service.ListingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(listingSvc *service.ListingService) *AdminHandler {
	return &AdminHandler{listingSvc: listingSvc}
}

// adminCreateRequest is the JSON request body for POST /admin/stocks.
type adminCreateRequest struct {
	Symbol string   `json:"symbol"`
	Owner  string   `json:"owner"` // optional, empty lists the symbol unowned
	Price  *float64 `json:"price"` // omitted: drawn from the new-listing band
}

// setPriceRequest is the JSON request body for PUT /admin/stocks/{symbol}/price.
type setPriceRequest struct {
	Price float64 `json:"price"`
}

// bankruptResponse is the JSON response for POST /admin/stocks/{symbol}/bankrupt.
type bankruptResponse struct {
	Symbol  string   `json:"symbol"`
	Holders []string `json:"holders"`
}

// CreateStock handles POST /admin/stocks.
func (h *AdminHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var req adminCreateRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	q, err := h.listingSvc.AdminCreate(req.Symbol, req.Owner, req.Price)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, stockResponse{Symbol: q.Symbol, Price: q.Price, Owner: q.Owner})
}

// Bankrupt handles POST /admin/stocks/{symbol}/bankrupt.
func (h *AdminHandler) Bankrupt(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	holders, err := h.listingSvc.Bankrupt(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	if holders == nil {
		holders = []string{}
	}
	WriteJSON(w, http.StatusOK, bankruptResponse{
		Symbol:  domain.NormalizeSymbol(symbol),
		Holders: holders,
	})
}

// SetPrice handles PUT /admin/stocks/{symbol}/price.
func (h *AdminHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req setPriceRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	q, err := h.listingSvc.SetPrice(symbol, req.Price)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stockResponse{Symbol: q.Symbol, Price: q.Price})
}
