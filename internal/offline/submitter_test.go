package offline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restopos-backend/internal/catalog"
	"restopos-backend/internal/models"
	"restopos-backend/internal/orders"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})
	mux.HandleFunc("POST /api/orders/manual", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Oturum bulunamadı"})
			return
		}
		var req orders.ManualOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 || req.ClientRef != "l-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Items[0].ProductID == 99 {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Yetersiz stok: Kola (mevcut: 0, istenen: 1)"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(orders.OrderResponse{ID: 42, Status: req.Status})
	})
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]catalog.ProductResponse{
			{ID: 1, Name: "Kola", Price: 25.5, IsQuantifiable: true, Quantity: intPtr(4), Status: models.ProductActive},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSubmitter(t *testing.T) {
	srv := newFakeServer(t)
	s := NewHTTPSubmitter(srv.URL+"/", "session", 2*time.Second)
	ctx := context.Background()

	o := Order{
		LocalID: "l-1",
		Status:  models.OrderPaid,
		Items:   []Item{{ProductID: 1, Name: "Kola", Quantity: 1, Price: decimal.RequireFromString("25.50")}},
	}

	_, err := s.SubmitOrder(ctx, o)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnauthorized, remote.Status)

	require.NoError(t, s.Login(ctx, "kasa@example.com", "secret"))

	id, err := s.SubmitOrder(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	o.Items[0].ProductID = 99
	_, err = s.SubmitOrder(ctx, o)
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusConflict, remote.Status)
	assert.Contains(t, remote.Message, "Yetersiz stok")

	products, err := s.FetchProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, 4, *products[0].Quantity)
}

func TestHTTPSubmitterCancelledContext(t *testing.T) {
	s := NewHTTPSubmitter("http://127.0.0.1:1", "session", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SubmitOrder(ctx, Order{Items: []Item{{ProductID: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, context.Canceled)
}
