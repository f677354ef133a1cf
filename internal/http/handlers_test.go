package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/service"
	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router chi.Router
	sender *delivery.Fixed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog, err := domain.NewCatalog(domain.DefaultProducts())
	require.NoError(t, err)

	sender := delivery.NewFixed(true)
	registry := service.NewRegistry(
		session.NewMemoryProvider(0),
		catalog,
		certificate.NewGenerator(320, 200),
		sender,
		events.NewBus(),
		0,
	)
	t.Cleanup(registry.Close)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	return &testServer{
		router: NewRouter(registry, catalog, 5*time.Second, metrics),
		sender: sender,
	}
}

func (s *testServer) do(t *testing.T, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	request := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		request.Header.Set(SessionHeader, sessionID)
	}
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestGetCatalog(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/catalog", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ProductsResponse](t, rec)
	require.Len(t, resp.Products, 5)
	assert.Equal(t, "p1", resp.Products[0].ID)
}

func TestSessionMiddleware_GeneratesID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/cart", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(SessionHeader), 36)
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t)
	const sid = "cart-session"

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", sid, AddItemRequestDTO{ProductID: "p1", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, sid, rec.Header().Get(SessionHeader))

	rec = s.do(t, http.MethodPost, "/api/v1/cart/items", sid, AddItemRequestDTO{ProductID: "p3", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/cart/items/p1", sid, UpdateQuantityRequestDTO{Quantity: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[domain.CartSnapshot](t, rec)
	assert.Equal(t, 7, snapshot.ItemCount)
	assert.Equal(t, "59", snapshot.Total.String())

	rec = s.do(t, http.MethodDelete, "/api/v1/cart/items/p3", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot = decode[domain.CartSnapshot](t, rec)
	require.Len(t, snapshot.Items, 1)

	rec = s.do(t, http.MethodDelete, "/api/v1/cart", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot = decode[domain.CartSnapshot](t, rec)
	assert.True(t, snapshot.IsEmpty())
}

func TestAddItem_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unknown product", AddItemRequestDTO{ProductID: "nope", Quantity: 1}, http.StatusNotFound, "unknown_product"},
		{"zero quantity", AddItemRequestDTO{ProductID: "p1", Quantity: 0}, http.StatusBadRequest, "invalid_quantity"},
		{"missing product", AddItemRequestDTO{Quantity: 1}, http.StatusBadRequest, "invalid_product_id"},
		{"bad json", "not an object", http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/cart/items", "s", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestCheckoutResendAndDownload(t *testing.T) {
	s := newTestServer(t)
	const sid = "buyer-session"

	rec := s.do(t, http.MethodPut, "/api/v1/profile", sid, session.Profile{
		Username:    "bob",
		CompanyName: "Green Co",
		Email:       "bob@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Green Co", decode[ProfileResponseDTO](t, rec).DisplayName)

	rec = s.do(t, http.MethodPost, "/api/v1/cart/items", sid, AddItemRequestDTO{ProductID: "p2", Quantity: 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	s.sender.SetOutcome(false)
	rec = s.do(t, http.MethodPost, "/api/v1/checkout", sid, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	result := decode[service.CheckoutResult](t, rec)
	require.Len(t, result.Purchases, 1)
	purchase := result.Purchases[0]
	assert.False(t, purchase.EmailSent)
	assert.Equal(t, 1, purchase.EmailAttempts)

	s.sender.SetOutcome(true)
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/purchases/%s/resend", purchase.ID), sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resent := decode[domain.PurchaseRecord](t, rec)
	assert.True(t, resent.EmailSent)
	assert.Equal(t, 2, resent.EmailAttempts)

	rec = s.do(t, http.MethodGet, "/api/v1/purchases", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[PurchasesResponseDTO](t, rec)
	require.Len(t, list.Purchases, 1)
	assert.Empty(t, list.SendingPurchase)

	rec = s.do(t, http.MethodGet, "/api/v1/purchases/"+purchase.ID+"/certificate", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), certificate.FileName(purchase.ID))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = s.do(t, http.MethodGet, "/api/v1/sent-emails", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sent := decode[SentEmailsResponseDTO](t, rec)
	require.Len(t, sent.SentEmails, 1)
	assert.Equal(t, "bob@example.com", sent.SentEmails[0].To)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout", "empty", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[service.CheckoutResult](t, rec).Purchases)
}

func TestResend_Errors(t *testing.T) {
	s := newTestServer(t)
	const sid = "no-email"

	rec := s.do(t, http.MethodPost, "/api/v1/purchases/missing/resend", sid, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "purchase_not_found", decode[ErrorResponse](t, rec).Code)

	s.do(t, http.MethodPost, "/api/v1/cart/items", sid, AddItemRequestDTO{ProductID: "p1", Quantity: 1})
	rec = s.do(t, http.MethodPost, "/api/v1/checkout", sid, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[service.CheckoutResult](t, rec).Purchases[0].ID

	rec = s.do(t, http.MethodPost, "/api/v1/purchases/"+id+"/resend", sid, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "resend_unavailable", decode[ErrorResponse](t, rec).Code)
}

func TestProfile_InvalidEmail(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/profile", "s", session.Profile{Email: "not-an-address"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_email", decode[ErrorResponse](t, rec).Code)
}

func TestGetProfile_Default(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/profile", "fresh", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Valued Customer", decode[ProfileResponseDTO](t, rec).DisplayName)
}
