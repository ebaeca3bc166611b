package inventory

import (
	"errors"
	"fmt"
	"time"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/establishment"
	"restopos-backend/internal/events"
	"restopos-backend/internal/models"
	"restopos-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RestockRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type RestockEventResponse struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UserID      uint   `json:"userId"`
	CreatedAt   string `json:"createdAt"`
}

type ProductStockResponse struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	IsQuantifiable bool   `json:"isQuantifiable"`
	Quantity       *int   `json:"quantity"`
}

func toEventResponse(e models.RestockEvent) RestockEventResponse {
	return RestockEventResponse{
		ID:          e.ID,
		ProductID:   e.ProductID,
		ProductName: e.Product.Name,
		Quantity:    e.Quantity,
		UserID:      e.UserID,
		CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/restock
func CreateRestockHandler(db *gorm.DB, pub events.Publisher, invalidate func(slug string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body RestockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "productId zorunlu")
		}

		event, product, err := Restock(db, est.ID, userID, body.ProductID, body.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNotQuantifiable):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrProductNotFound):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return err
		}

		events.PublishAsync(pub, events.Event{
			Type:            events.StockRestocked,
			EstablishmentID: est.ID,
			ProductID:       product.ID,
			Quantity:        event.Quantity,
		})
		if invalidate != nil {
			invalidate(est.Slug)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"entry": toEventResponse(*event),
			"product": ProductStockResponse{
				ID:             product.ID,
				Name:           product.Name,
				IsQuantifiable: product.IsQuantifiable,
				Quantity:       product.Quantity,
			},
		})
	}
}

func parseRestockFilter(c *fiber.Ctx) (RestockFilter, error) {
	var f RestockFilter
	from, to, err := report.DateRange(c, "startDate", "endDate")
	if err != nil {
		return f, err
	}
	f.From, f.To = from, to

	if c.Query("productId") != "" {
		pid := c.QueryInt("productId", 0)
		if pid <= 0 {
			return f, fiber.NewError(fiber.StatusBadRequest, "productId geçersiz")
		}
		id := uint(pid)
		f.ProductID = &id
	}
	return f, nil
}

// GET /api/restock?startDate=2024-01-01&endDate=2024-01-31&productId=3
func ListRestockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		f, err := parseRestockFilter(c)
		if err != nil {
			return err
		}

		list, err := ListRestockEvents(db, est.ID, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişleri listelenemedi")
		}

		resp := make([]RestockEventResponse, 0, len(list))
		for _, e := range list {
			resp = append(resp, toEventResponse(e))
		}
		return c.JSON(resp)
	}
}

// GET /api/restock/export: aynı filtrelerle XLSX
func ExportRestockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		f, err := parseRestockFilter(c)
		if err != nil {
			return err
		}

		list, err := ListRestockEvents(db, est.ID, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişleri listelenemedi")
		}

		rows := make([][]any, 0, len(list))
		for _, e := range list {
			rows = append(rows, []any{
				e.CreatedAt.Format("2006-01-02 15:04"),
				e.ProductID,
				e.Product.Name,
				e.Quantity,
				e.UserID,
			})
		}

		buf, err := report.BuildXLSX("Stok Girisleri",
			[]string{"Tarih", "Ürün ID", "Ürün", "Miktar", "Kullanıcı ID"}, rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		filename := fmt.Sprintf("stok-girisleri-%s.xlsx", time.Now().Format("20060102"))
		return report.SendXLSX(c, filename, buf)
	}
}
