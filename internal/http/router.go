package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every route. metrics may be nil.
func NewRouter(workspaces WorkspaceSource, catalog *domain.Catalog, timeout time.Duration, metrics http.Handler) chi.Router {
	catalogHandler := NewCatalogHandler(catalog)
	profileHandler := NewProfileHandler(workspaces)
	cartHandler := NewCartHandler(workspaces, timeout)
	checkoutHandler := NewCheckoutHandler(workspaces, timeout)
	purchasesHandler := NewPurchasesHandler(workspaces, timeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", catalogHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Put)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Post("/checkout", checkoutHandler.Checkout)

			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", purchasesHandler.List)
				r.Get("/{purchase_id}", purchasesHandler.Get)
				r.Post("/{purchase_id}/resend", purchasesHandler.Resend)
				r.Get("/{purchase_id}/certificate", purchasesHandler.Certificate)
			})

			r.Get("/sent-emails", purchasesHandler.SentEmails)
		})
	})

	return r
}
