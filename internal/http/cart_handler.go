package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	workspaces WorkspaceSource
	timeout    time.Duration
}

func NewCartHandler(workspaces WorkspaceSource, timeout time.Duration) *CartHandler {
	return &CartHandler{
		workspaces: workspaces,
		timeout:    timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	snapshot, err := ws.Cart.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Cart.Add(ctx, req.ProductID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	snapshot, err := ws.Cart.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}

// PUT /api/v1/cart/items/{product_id}; a quantity of zero or less removes the item.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Cart.SetQuantity(ctx, productID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	snapshot, err := ws.Cart.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Cart.Remove(ctx, chi.URLParam(r, "product_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	snapshot, err := ws.Cart.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Cart.Clear(ctx); err != nil {
		handleServiceError(w, err)
		return
	}

	snapshot, err := ws.Cart.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}
