package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/establishment"
	"restopos-backend/internal/events"
	"restopos-backend/internal/models"
	"restopos-backend/internal/testutil"
	"restopos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func TestRestock_AddsExactlyN(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, u.ID, "kafe")
	c := testutil.CreateProduct(t, db, est.ID, "Kahve", "60.00", testutil.IntPtr(10))

	event, product, err := Restock(db, est.ID, u.ID, c.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, event.Quantity)
	assert.Equal(t, 30, *product.Quantity)
	assert.Equal(t, 30, *testutil.ProductQuantity(t, db, c.ID))

	var ledger []models.RestockEvent
	require.NoError(t, db.Where("product_id = ?", c.ID).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, 20, ledger[0].Quantity)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "restock_event").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestRestock_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	est := testutil.CreateEstablishment(t, db, u.ID, "kafe")
	otherEst := testutil.CreateEstablishment(t, db, other.ID, "diger")

	tracked := testutil.CreateProduct(t, db, est.ID, "Kahve", "60.00", testutil.IntPtr(10))
	untracked := testutil.CreateProduct(t, db, est.ID, "Çay", "10.00", nil)
	foreign := testutil.CreateProduct(t, db, otherEst.ID, "Kek", "25.00", testutil.IntPtr(3))

	tests := []struct {
		name      string
		productID uint
		qty       int
		wantErr   error
	}{
		{"zero quantity", tracked.ID, 0, ErrInvalidQuantity},
		{"negative quantity", tracked.ID, -4, ErrInvalidQuantity},
		{"not quantifiable", untracked.ID, 5, ErrNotQuantifiable},
		{"other establishment", foreign.ID, 5, ErrProductNotFound},
		{"missing product", 9999, 5, ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Restock(db, est.ID, u.ID, tt.productID, tt.qty)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, 10, *testutil.ProductQuantity(t, db, tracked.ID))
	assert.Equal(t, 3, *testutil.ProductQuantity(t, db, foreign.ID))

	var count int64
	require.NoError(t, db.Model(&models.RestockEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListRestockEvents_Filters(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, u.ID, "kafe")
	a := testutil.CreateProduct(t, db, est.ID, "A", "1.00", testutil.IntPtr(0))
	b := testutil.CreateProduct(t, db, est.ID, "B", "1.00", testutil.IntPtr(0))

	old := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	recent := time.Date(2025, 3, 20, 12, 0, 0, 0, time.Local)
	for _, e := range []models.RestockEvent{
		{EstablishmentID: est.ID, ProductID: a.ID, Quantity: 1, UserID: u.ID, CreatedAt: old},
		{EstablishmentID: est.ID, ProductID: a.ID, Quantity: 2, UserID: u.ID, CreatedAt: recent},
		{EstablishmentID: est.ID, ProductID: b.ID, Quantity: 3, UserID: u.ID, CreatedAt: recent},
	} {
		require.NoError(t, db.Create(&e).Error)
	}

	all, err := ListRestockEvents(db, est.ID, RestockFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pid := a.ID
	onlyA, err := ListRestockEvents(db, est.ID, RestockFilter{ProductID: &pid})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)
	assert.Equal(t, "A", onlyA[0].Product.Name)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	since, err := ListRestockEvents(db, est.ID, RestockFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

type recordingPublisher struct {
	ch chan events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.ch <- ev
	return nil
}

func newRestockApp(t *testing.T, db *gorm.DB, userID uint, pub events.Publisher) *fiber.App {
	t.Helper()
	app := web.NewApp()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		return c.Next()
	}, establishment.Resolver(db))
	app.Post("/api/restock", CreateRestockHandler(db, pub, nil))
	app.Get("/api/restock", ListRestockHandler(db))
	app.Get("/api/restock/export", ExportRestockHandler(db))
	return app
}

func TestRestockHandlers(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, u.ID, "kafe")
	p := testutil.CreateProduct(t, db, est.ID, "Kahve", "60.00", testutil.IntPtr(10))

	pub := &recordingPublisher{ch: make(chan events.Event, 1)}
	app := newRestockApp(t, db, u.ID, pub)

	body, _ := json.Marshal(RestockRequest{ProductID: p.ID, Quantity: 20})
	req := httptest.NewRequest("POST", "/api/restock", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Entry   RestockEventResponse `json:"entry"`
		Product ProductStockResponse `json:"product"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 20, created.Entry.Quantity)
	assert.Equal(t, "Kahve", created.Entry.ProductName)
	require.NotNil(t, created.Product.Quantity)
	assert.Equal(t, 30, *created.Product.Quantity)

	select {
	case ev := <-pub.ch:
		assert.Equal(t, events.StockRestocked, ev.Type)
		assert.Equal(t, p.ID, ev.ProductID)
		assert.Equal(t, 20, ev.Quantity)
	case <-time.After(2 * time.Second):
		t.Fatal("stock.restocked event yayınlanmadı")
	}

	// Geçersiz miktar
	body, _ = json.Marshal(RestockRequest{ProductID: p.ID, Quantity: 0})
	req = httptest.NewRequest("POST", "/api/restock", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	today := time.Now().Format("2006-01-02")
	resp, err = app.Test(httptest.NewRequest("GET", "/api/restock?startDate="+today+"&endDate="+today, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []RestockEventResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/restock?startDate=01-01-2025", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/restock/export", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Stok Girisleri")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Kahve", rows[1][2])
}
