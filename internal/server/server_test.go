package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"restopos-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doAuth(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	fixedNow := time.Now()
	return New(Deps{
		Config: testutil.Config(),
		DB:     testutil.NewDB(t),
		Now:    func() time.Time { return fixedNow },
	})
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp := testutil.DoJSON(t, app, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", testutil.DecodeJSON[map[string]string](t, resp)["status"])
}

func TestAdminRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/orders", "/api/products", "/api/restock", "/api/analytics/sales", "/api/establishment"} {
		resp := testutil.DoJSON(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := doAuth(t, app, http.MethodGet, "/api/orders", "bozuk-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEndToEndOrderFlow(t *testing.T) {
	app := newTestApp(t)

	resp := testutil.DoJSON(t, app, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Deniz", "email": "deniz@example.com", "password": "gizli-sifre",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = testutil.DoJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "deniz@example.com", "password": "gizli-sifre",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := testutil.DecodeJSON[struct {
		Token string `json:"token"`
	}](t, resp).Token
	require.NotEmpty(t, token)

	// İşletme yokken admin route'ları 404
	resp = doAuth(t, app, http.MethodGet, "/api/products", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doAuth(t, app, http.MethodPost, "/api/establishment", token, map[string]string{"name": "Kafe Deniz"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	est := testutil.DecodeJSON[struct {
		ID   uint   `json:"id"`
		Slug string `json:"slug"`
	}](t, resp)
	assert.Equal(t, "kafe-deniz", est.Slug)

	resp = doAuth(t, app, http.MethodPost, "/api/products", token, map[string]any{
		"name": "Limonata", "price": "30.00", "isQuantifiable": true, "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	product := testutil.DecodeJSON[struct {
		ID uint `json:"id"`
	}](t, resp)

	resp = doAuth(t, app, http.MethodPost, "/api/tables", token, map[string]any{"name": "Masa 1", "seats": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	table := testutil.DecodeJSON[struct {
		Token string `json:"token"`
	}](t, resp)

	// Public menü ve masa bilgisi oturumsuz
	resp = testutil.DoJSON(t, app, http.MethodGet, "/api/public/menu/"+est.Slug, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = testutil.DoJSON(t, app, http.MethodGet, "/api/public/tables/"+table.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoJSON(t, app, http.MethodPost, "/api/orders", map[string]any{
		"restaurantId": est.ID,
		"tableToken":   table.Token,
		"items":        []map[string]any{{"productId": product.ID, "quantity": 2, "price": "30.00"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := testutil.DecodeJSON[struct {
		ID          uint    `json:"id"`
		Status      string  `json:"status"`
		TotalAmount float64 `json:"totalAmount"`
	}](t, resp)
	assert.Equal(t, "pending", order.Status)
	assert.InDelta(t, 60.0, order.TotalAmount, 0.001)

	orderPath := "/api/orders/" + strconv.FormatUint(uint64(order.ID), 10)
	resp = doAuth(t, app, http.MethodPatch, orderPath, token, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	productPath := "/api/products/" + strconv.FormatUint(uint64(product.ID), 10)
	resp = doAuth(t, app, http.MethodGet, productPath, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := testutil.DecodeJSON[struct {
		Quantity *int `json:"quantity"`
	}](t, resp)
	require.NotNil(t, got.Quantity)
	assert.Equal(t, 3, *got.Quantity)

	resp = doAuth(t, app, http.MethodPost, "/api/restock", token, map[string]any{"productId": product.ID, "quantity": 7})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAuth(t, app, http.MethodGet, "/api/analytics/sales?period=daily&count=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sales := testutil.DecodeJSON[struct {
		GrandTotals struct {
			Table  float64 `json:"table"`
			Total  float64 `json:"total"`
			Orders int     `json:"orders"`
		} `json:"grandTotals"`
	}](t, resp)
	assert.InDelta(t, 60.0, sales.GrandTotals.Total, 0.001)
	assert.InDelta(t, 60.0, sales.GrandTotals.Table, 0.001)
	assert.Equal(t, 1, sales.GrandTotals.Orders)

	resp = doAuth(t, app, http.MethodGet, "/api/audit-logs", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := testutil.DecodeJSON[[]map[string]any](t, resp)
	assert.GreaterOrEqual(t, len(logs), 2, "status değişimi ve restock loglanmalı")

	resp = doAuth(t, app, http.MethodGet, "/api/orders/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "spreadsheetml")
}
