package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"restopos-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalApp(t *testing.T, sub *fakeSubmitter) (*fiber.App, *Cache) {
	t.Helper()
	c, _, _ := newTestCache(t, sub)
	app := NewLocalApp(c, c.Flush)
	return app, c
}

func TestLocalAPI_OrderEntryAndSync(t *testing.T) {
	sub := &fakeSubmitter{}
	app, c := newLocalApp(t, sub)

	resp := testutil.DoJSON(t, app, "POST", "/local/drafts", map[string]any{"tableId": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := testutil.DecodeJSON[Draft](t, resp)
	require.NotEmpty(t, draft.ID)
	require.NotNil(t, draft.TableID)
	assert.Equal(t, uint(4), *draft.TableID)

	itemsPath := "/local/drafts/" + draft.ID + "/items"
	resp = testutil.DoJSON(t, app, "POST", itemsPath, AddItemRequest{ProductID: colaID, Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = testutil.DoJSON(t, app, "POST", itemsPath, AddItemRequest{ProductID: burgerID, Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Burger satırı çıkarılır
	resp = testutil.DoJSON(t, app, "DELETE", fmt.Sprintf("%s/%d", itemsPath, burgerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft = testutil.DecodeJSON[Draft](t, resp)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, colaID, draft.Items[0].ProductID)

	resp = testutil.DoJSON(t, app, "GET", "/local/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := testutil.DecodeJSON[[]Product](t, resp)
	require.Len(t, products, 2)
	assert.Equal(t, intPtr(1), products[0].Quantity)

	resp = testutil.DoJSON(t, app, "POST", "/local/drafts/"+draft.ID+"/enqueue", EnqueueRequest{Status: "paid"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	queued := testutil.DecodeJSON[Order](t, resp)
	assert.Equal(t, StatusPending, queued.SyncStatus)

	// Kuyruğa alınan taslak artık yok
	resp = testutil.DoJSON(t, app, "GET", "/local/drafts/"+draft.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = testutil.DoJSON(t, app, "POST", "/local/sync", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := testutil.DecodeJSON[FlushResult](t, resp)
	assert.Equal(t, FlushResult{Synced: 1}, res)

	require.Len(t, sub.received, 1)
	assert.Equal(t, queued.LocalID, sub.received[0].LocalID)

	orders, err := c.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, StatusSynced, orders[0].SyncStatus)
}

func TestLocalAPI_Errors(t *testing.T) {
	app, _ := newLocalApp(t, &fakeSubmitter{})

	resp := testutil.DoJSON(t, app, "POST", "/local/drafts", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := testutil.DecodeJSON[Draft](t, resp)
	itemsPath := "/local/drafts/" + draft.ID + "/items"

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"local stock", "POST", itemsPath, AddItemRequest{ProductID: colaID, Quantity: 4}, http.StatusConflict, "yerel stok yetersiz: Kola (mevcut: 3, istenen: 4)"},
		{"zero quantity", "POST", itemsPath, AddItemRequest{ProductID: colaID, Quantity: 0}, http.StatusBadRequest, "Miktar 0'dan büyük olmalı"},
		{"missing product id", "POST", itemsPath, AddItemRequest{Quantity: 1}, http.StatusBadRequest, "productId zorunlu"},
		{"uncached product", "POST", itemsPath, AddItemRequest{ProductID: 99, Quantity: 1}, http.StatusNotFound, "Ürün yerel listede yok"},
		{"unknown draft", "POST", "/local/drafts/yok/items", AddItemRequest{ProductID: colaID, Quantity: 1}, http.StatusNotFound, "Taslak sipariş bulunamadı"},
		{"bad product param", "DELETE", itemsPath + "/abc", nil, http.StatusBadRequest, "Geçersiz ürün id"},
		{"empty draft", "POST", "/local/drafts/" + draft.ID + "/enqueue", EnqueueRequest{Status: "paid"}, http.StatusBadRequest, "Taslak sipariş boş"},
		{"pending status", "POST", "/local/drafts/" + draft.ID + "/enqueue", EnqueueRequest{Status: "pending"}, http.StatusBadRequest, "Durum completed veya paid olmalı"},
		{"retry unknown", "POST", "/local/orders/yok/retry", nil, http.StatusNotFound, "Kuyrukta sipariş bulunamadı"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, testutil.ErrorMessage(t, resp))
		})
	}
}

func TestLocalAPI_DiscardRestoresShadow(t *testing.T) {
	app, c := newLocalApp(t, &fakeSubmitter{})

	resp := testutil.DoJSON(t, app, "POST", "/local/drafts", nil)
	draft := testutil.DecodeJSON[Draft](t, resp)
	resp = testutil.DoJSON(t, app, "POST", "/local/drafts/"+draft.ID+"/items", AddItemRequest{ProductID: colaID, Quantity: 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, intPtr(0), shadowQty(t, c, colaID))

	resp = testutil.DoJSON(t, app, "DELETE", "/local/drafts/"+draft.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, intPtr(3), shadowQty(t, c, colaID))
}

func TestLocalAPI_RejectedOrderRetryAndDrop(t *testing.T) {
	sub := &fakeSubmitter{failFor: map[uint]error{colaID: &RemoteError{Status: 409, Message: "Yetersiz stok: Kola"}}}
	app, c := newLocalApp(t, sub)
	first := queue(t, c, colaID, 1, "paid")
	second := queue(t, c, colaID, 1, "completed")

	resp := testutil.DoJSON(t, app, "POST", "/local/sync", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, FlushResult{Rejected: 2}, testutil.DecodeJSON[FlushResult](t, resp))

	resp = testutil.DoJSON(t, app, "GET", "/local/orders", nil)
	orders := testutil.DecodeJSON[[]Order](t, resp)
	require.Len(t, orders, 2)
	assert.Equal(t, StatusRejected, orders[0].SyncStatus)

	resp = testutil.DoJSON(t, app, "DELETE", "/local/orders/"+second.LocalID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	sub.failFor = nil
	resp = testutil.DoJSON(t, app, "POST", "/local/orders/"+first.LocalID+"/retry", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusPending, testutil.DecodeJSON[Order](t, resp).SyncStatus)

	// pending siparişe retry anlamsız
	resp = testutil.DoJSON(t, app, "POST", "/local/orders/"+first.LocalID+"/retry", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = testutil.DoJSON(t, app, "POST", "/local/sync", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, FlushResult{Synced: 1}, testutil.DecodeJSON[FlushResult](t, resp))
}

func TestSyncHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"in progress", ErrSyncInProgress, http.StatusConflict},
		{"remote", &RemoteError{Status: 401, Message: "Oturum gerekli"}, http.StatusBadGateway},
		{"unreachable", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestCache(t, &fakeSubmitter{})
			app := NewLocalApp(c, func(context.Context) (FlushResult, error) { return FlushResult{}, tt.err })
			resp := testutil.DoJSON(t, app, "POST", "/local/sync", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			resp.Body.Close()
		})
	}
}
