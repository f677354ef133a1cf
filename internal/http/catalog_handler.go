package http

import (
	"net/http"

	"github.com/fjod/go_cart/certshop/internal/domain"
)

type CatalogHandler struct {
	catalog *domain.Catalog
}

func NewCatalogHandler(catalog *domain.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

// GET /api/v1/catalog
func (h *CatalogHandler) Get(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: h.catalog.Products()})
}
