package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type PurchasesHandler struct {
	workspaces WorkspaceSource
	timeout    time.Duration
}

func NewPurchasesHandler(workspaces WorkspaceSource, timeout time.Duration) *PurchasesHandler {
	return &PurchasesHandler{
		workspaces: workspaces,
		timeout:    timeout,
	}
}

type PurchasesResponseDTO struct {
	Purchases       []domain.PurchaseRecord `json:"purchases"`
	SendingPurchase string                  `json:"sending_purchase,omitempty"`
}

type SentEmailsResponseDTO struct {
	SentEmails []delivery.SentEmail `json:"sent_emails"`
}

// GET /api/v1/purchases
func (h *PurchasesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	purchases, err := ws.Checkout.Purchases(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	sending, _, err := ws.Checkout.SendingPurchase(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, PurchasesResponseDTO{Purchases: purchases, SendingPurchase: sending})
}

func (h *PurchasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	purchase, err := ws.Checkout.Purchase(ctx, chi.URLParam(r, "purchase_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

// POST /api/v1/purchases/{purchase_id}/resend
func (h *PurchasesHandler) Resend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	purchase, err := ws.Checkout.Resend(ctx, chi.URLParam(r, "purchase_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

// GET /api/v1/purchases/{purchase_id}/certificate
func (h *PurchasesHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	purchase, err := ws.Checkout.Purchase(ctx, chi.URLParam(r, "purchase_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !purchase.HasCertificate() {
		respondError(w, http.StatusNotFound, "certificate_not_available", "purchase has no certificate")
		return
	}

	data, err := certificate.DecodeDataURI(purchase.Certificate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", certificate.FileName(purchase.ID)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.WithError(err).Error("failed to write certificate")
	}
}

// GET /api/v1/sent-emails
func (h *PurchasesHandler) SentEmails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	sent, err := ws.Checkout.SentEmails(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SentEmailsResponseDTO{SentEmails: sent})
}
