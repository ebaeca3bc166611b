package analytics

import (
	"testing"
	"time"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/establishment"
	"restopos-backend/internal/models"
	"restopos-backend/internal/testutil"
	"restopos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Çarşamba
var fixedNow = time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)

func TestWindow(t *testing.T) {
	tests := []struct {
		period    Period
		count     int
		wantStart string
		wantEnd   string
	}{
		{Daily, 7, "2026-03-05", "2026-03-12"},
		{Weekly, 2, "2026-03-02", "2026-03-16"},
		{Monthly, 3, "2026-01-01", "2026-04-01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := Window(tt.period, tt.count, fixedNow)
			assert.Equal(t, tt.wantStart, start.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, end.Format("2006-01-02"))
		})
	}
}

func TestBucketStart_WeekStartsMonday(t *testing.T) {
	sunday := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-09", bucketStart(Weekly, sunday).Format("2006-01-02"))
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-09", bucketStart(Weekly, monday).Format("2006-01-02"))
}

func seedOrder(t *testing.T, db *gorm.DB, estID uint, status models.OrderStatus, source models.OrderSource, at time.Time, productID uint, qty int, price string) {
	t.Helper()
	p := decimal.RequireFromString(price)
	total := p.Mul(decimal.NewFromInt(int64(qty)))
	o := models.Order{
		EstablishmentID: estID,
		Source:          source,
		Status:          status,
		TotalAmount:     total,
		CreatedAt:       at,
		Items:           []models.OrderItem{{ProductID: productID, Quantity: qty, Price: p, Total: total}},
	}
	require.NoError(t, db.Create(&o).Error)
}

func TestSales(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, u.ID, "kafe")
	p := testutil.CreateProduct(t, db, est.ID, "Tost", "40.00", nil)

	today := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourceTable, today, p.ID, 2, "40")
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourceManual, today, p.ID, 1, "35.5")
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourcePublic, yesterday, p.ID, 1, "40")
	// Sayılmamalı: ödenmemiş, pencere dışı
	seedOrder(t, db, est.ID, models.OrderPending, models.SourceTable, today, p.ID, 5, "40")
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourceTable, today.AddDate(0, 0, -30), p.ID, 5, "40")

	chart, err := Sales(db, est.ID, Daily, 7, fixedNow)
	require.NoError(t, err)
	require.Len(t, chart.Points, 7)
	assert.Equal(t, "2026-03-05", chart.From)
	assert.Equal(t, "2026-03-11", chart.To)

	last := chart.Points[6]
	assert.Equal(t, "2026-03-11", last.Label)
	assert.Equal(t, 80.0, last.Table)
	assert.Equal(t, 35.5, last.Manual)
	assert.Equal(t, 115.5, last.Total)
	assert.Equal(t, 2, last.Orders)

	assert.Equal(t, 40.0, chart.Points[5].Public)
	assert.Zero(t, chart.Points[0].Total)

	assert.Equal(t, 155.5, chart.GrandTotals.Total)
	assert.Equal(t, 3, chart.GrandTotals.Orders)

	monthly, err := Sales(db, est.ID, Monthly, 2, fixedNow)
	require.NoError(t, err)
	require.Len(t, monthly.Points, 2)
	assert.Equal(t, 200.0, monthly.Points[0].Total)
	assert.Equal(t, 155.5, monthly.Points[1].Total)
}

func TestTopProductsAndLowStock(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, u.ID, "kafe")
	tost := testutil.CreateProduct(t, db, est.ID, "Tost", "40.00", testutil.IntPtr(2))
	cay := testutil.CreateProduct(t, db, est.ID, "Çay", "10.00", testutil.IntPtr(50))
	testutil.CreateProduct(t, db, est.ID, "Su", "5.00", nil)

	now := time.Now()
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourceTable, now, cay.ID, 6, "10")
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourceTable, now, tost.ID, 2, "40")
	seedOrder(t, db, est.ID, models.OrderPaid, models.SourceManual, now, cay.ID, 4, "10")
	seedOrder(t, db, est.ID, models.OrderCancelled, models.SourceTable, now, tost.ID, 20, "40")

	top, err := TopProducts(db, est.ID, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Çay", top[0].Name)
	assert.Equal(t, int64(10), top[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(top[0].Revenue))
	assert.Equal(t, int64(2), top[1].Quantity)

	low, err := LowStock(db, est.ID, 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Tost", low[0].Name)
}

func TestSalesHandler(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "owner@example.com")
	testutil.CreateEstablishment(t, db, u.ID, "kafe")

	app := web.NewApp()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, u.ID)
		return c.Next()
	}, establishment.Resolver(db))
	app.Get("/sales", SalesHandler(db, func() time.Time { return fixedNow }))
	app.Get("/low-stock", LowStockHandler(db))

	resp := testutil.DoJSON(t, app, "GET", "/sales?period=weekly", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	chart := testutil.DecodeJSON[SalesChart](t, resp)
	assert.Equal(t, Weekly, chart.Period)
	assert.Len(t, chart.Points, 8)

	resp = testutil.DoJSON(t, app, "GET", "/sales?period=yearly", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp = testutil.DoJSON(t, app, "GET", "/sales?count=-2", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp = testutil.DoJSON(t, app, "GET", "/low-stock?threshold=-1", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
