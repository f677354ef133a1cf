package http

import (
	"context"
	"net/http"
	"time"
)

type CheckoutHandler struct {
	workspaces WorkspaceSource
	timeout    time.Duration
}

func NewCheckoutHandler(workspaces WorkspaceSource, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		workspaces: workspaces,
		timeout:    timeout,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	result, err := ws.Checkout.Checkout(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if len(result.Purchases) == 0 {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}
