package analytics

import (
	"time"

	"restopos-backend/internal/establishment"
	"restopos-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TopProductResponse struct {
	ProductID uint    `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

type LowStockResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// GET /api/analytics/sales?period=daily&count=7
func SalesHandler(db *gorm.DB, now func() time.Time) fiber.Handler {
	if now == nil {
		now = time.Now
	}
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		period := Period(c.Query("period", string(Daily)))
		if period != Daily && period != Weekly && period != Monthly {
			return fiber.NewError(fiber.StatusBadRequest, "period daily, weekly veya monthly olmalı")
		}
		count := 0
		if c.Query("count") != "" {
			count = c.QueryInt("count", 0)
			if count <= 0 || count > 366 {
				return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
			}
		}

		chart, err := Sales(db, est.ID, period, count, now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		return c.JSON(chart)
	}
}

// GET /api/analytics/top-products?limit=10&startDate=2024-01-01&endDate=2024-01-31
func TopProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		from, to, err := report.DateRange(c, "startDate", "endDate")
		if err != nil {
			return err
		}
		limit := c.QueryInt("limit", 10)
		if limit <= 0 || limit > 100 {
			limit = 10
		}

		rows, err := TopProducts(db, est.ID, from, to, limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		res := make([]TopProductResponse, 0, len(rows))
		for _, r := range rows {
			res = append(res, TopProductResponse{
				ProductID: r.ProductID,
				Name:      r.Name,
				Quantity:  r.Quantity,
				Revenue:   r.Revenue.InexactFloat64(),
			})
		}
		return c.JSON(res)
	}
}

// GET /api/analytics/low-stock?threshold=5
func LowStockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		threshold := c.QueryInt("threshold", 5)
		if threshold < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "threshold negatif olamaz")
		}

		products, err := LowStock(db, est.ID, threshold)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		res := make([]LowStockResponse, 0, len(products))
		for _, p := range products {
			q := 0
			if p.Quantity != nil {
				q = *p.Quantity
			}
			res = append(res, LowStockResponse{ID: p.ID, Name: p.Name, Quantity: q})
		}
		return c.JSON(res)
	}
}
