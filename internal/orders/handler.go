package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/establishment"
	"restopos-backend/internal/inventory"
	"restopos-backend/internal/models"
	"restopos-backend/internal/report"
	"restopos-backend/internal/tables"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OrderItemResponse struct {
	ID          uint    `json:"id"`
	ProductID   uint    `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

type CustomerPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	EstablishmentID uint                `json:"establishmentId"`
	TableID         *uint               `json:"tableId"`
	TableName       string              `json:"tableName,omitempty"`
	Customer        *CustomerPayload    `json:"customer"`
	Source          models.OrderSource  `json:"source"`
	Status          models.OrderStatus  `json:"status"`
	TotalAmount     float64             `json:"totalAmount"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

type TableOrderRequest struct {
	RestaurantID uint        `json:"restaurantId"`
	TableToken   string      `json:"tableToken"`
	Items        []ItemInput `json:"items"`
}

type PublicOrderRequest struct {
	RestaurantID uint            `json:"restaurantId"`
	Items        []ItemInput     `json:"items"`
	Customer     CustomerPayload `json:"customer"`
}

type ManualOrderRequest struct {
	Items     []ItemInput        `json:"items"`
	TableID   *uint              `json:"tableId"`
	Status    models.OrderStatus `json:"status"`
	ClientRef string             `json:"clientRef"` // çevrimdışı kasanın yerel id'si, tekrar gönderimde aynı sipariş döner
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func ToResponse(o *models.Order) OrderResponse {
	res := OrderResponse{
		ID:              o.ID,
		EstablishmentID: o.EstablishmentID,
		TableID:         o.TableID,
		Source:          o.Source,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		Items:           make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:       o.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if o.Table != nil {
		res.TableName = o.Table.Name
	}
	if o.Customer != (models.CustomerSnapshot{}) {
		res.Customer = &CustomerPayload{
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Phone:     o.Customer.Phone,
			Address:   o.Customer.Address,
		}
	}
	for _, it := range o.Items {
		res.Items = append(res.Items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			Price:       it.Price.InexactFloat64(),
			Total:       it.Total.InexactFloat64(),
		})
	}
	return res
}

// toFiberError: Servis hatalarını HTTP koduna çevirir; tanınmayanlar 500 olarak loglanır
func toFiberError(err error) error {
	var itemErr *ItemError
	var transErr *TransitionError
	var stockErr *inventory.InsufficientStockError

	switch {
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Sipariş bulunamadı")
	case errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
	case errors.Is(err, ErrTableNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Masa bulunamadı")
	case errors.Is(err, ErrEstablishmentNotFound):
		return fiber.NewError(fiber.StatusNotFound, "İşletme bulunamadı")
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrTerminalState):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &itemErr), errors.As(err, &transErr):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &stockErr), errors.Is(err, ErrConcurrentUpdate):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}

func orderIDParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz sipariş id")
	}
	return uint(id), nil
}

// POST /api/orders (public, QR masa akışı)
func CreateTableOrderHandler(db *gorm.DB, svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TableOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		body.TableToken = strings.TrimSpace(body.TableToken)
		if body.RestaurantID == 0 || body.TableToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "restaurantId ve tableToken zorunlu")
		}

		table, _, err := tables.FindByToken(db, body.TableToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Masa bulunamadı")
			}
			return err
		}
		// Token başka işletmenin masasına aitse masa yokmuş gibi davran
		if table.EstablishmentID != body.RestaurantID {
			return fiber.NewError(fiber.StatusNotFound, "Masa bulunamadı")
		}

		order, err := svc.Create(c.UserContext(), CreateInput{
			EstablishmentID: body.RestaurantID,
			TableID:         &table.ID,
			Source:          models.SourceTable,
			Status:          models.OrderPending,
			Items:           body.Items,
		})
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(order))
	}
}

// POST /api/orders/public (public, masasız; müşteri bilgisi siparişe kopyalanır)
func CreatePublicOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PublicOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.RestaurantID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "restaurantId zorunlu")
		}

		customer := models.CustomerSnapshot{
			FirstName: strings.TrimSpace(body.Customer.FirstName),
			LastName:  strings.TrimSpace(body.Customer.LastName),
			Phone:     strings.TrimSpace(body.Customer.Phone),
			Address:   strings.TrimSpace(body.Customer.Address),
		}
		if customer.FirstName == "" || customer.Phone == "" || customer.Address == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri adı, telefon ve adres zorunlu")
		}

		order, err := svc.Create(c.UserContext(), CreateInput{
			EstablishmentID: body.RestaurantID,
			Customer:        &customer,
			Source:          models.SourcePublic,
			Status:          models.OrderPending,
			Items:           body.Items,
		})
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(order))
	}
}

// POST /api/orders/manual (admin; durum completed veya paid)
func CreateManualOrderHandler(svc *Service, invalidate func(slug string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body ManualOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Status == "" {
			body.Status = models.OrderCompleted
		}
		if body.Status != models.OrderCompleted && body.Status != models.OrderPaid {
			return fiber.NewError(fiber.StatusBadRequest, "Manuel sipariş durumu completed veya paid olmalı")
		}
		body.ClientRef = strings.TrimSpace(body.ClientRef)
		if len(body.ClientRef) > 64 {
			return fiber.NewError(fiber.StatusBadRequest, "clientRef en fazla 64 karakter olabilir")
		}

		order, err := svc.Create(c.UserContext(), CreateInput{
			EstablishmentID: est.ID,
			TableID:         body.TableID,
			Source:          models.SourceManual,
			Status:          body.Status,
			Items:           body.Items,
			UserID:          &userID,
			ClientRef:       body.ClientRef,
		})
		if err != nil {
			return toFiberError(err)
		}

		if order.Status == models.OrderPaid && invalidate != nil {
			invalidate(est.Slug)
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(order))
	}
}

// PATCH /api/orders/:id
func UpdateStatusHandler(svc *Service, invalidate func(slug string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := orderIDParam(c)
		if err != nil {
			return err
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "status pending, completed, paid veya cancelled olmalı")
		}

		order, from, err := svc.UpdateStatus(c.UserContext(), est.ID, id, body.Status, &userID)
		if err != nil {
			return toFiberError(err)
		}

		if from != models.OrderPaid && order.Status == models.OrderPaid && invalidate != nil {
			invalidate(est.Slug)
		}
		return c.JSON(ToResponse(order))
	}
}

// DELETE /api/orders/:id
func DeleteOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := orderIDParam(c)
		if err != nil {
			return err
		}

		if err := svc.Delete(c.UserContext(), est.ID, id, &userID); err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{
			"id":      id,
			"message": "Sipariş silindi",
		})
	}
}

// GET /api/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		id, err := orderIDParam(c)
		if err != nil {
			return err
		}

		order, err := svc.Get(c.UserContext(), est.ID, id)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(ToResponse(order))
	}
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	var f Filter
	if s := c.Query("status"); s != "" {
		f.Status = models.OrderStatus(s)
		if !f.Status.Valid() {
			return f, fiber.NewError(fiber.StatusBadRequest, "status geçersiz")
		}
	}
	if c.Query("tableId") != "" {
		tid := c.QueryInt("tableId", 0)
		if tid <= 0 {
			return f, fiber.NewError(fiber.StatusBadRequest, "tableId geçersiz")
		}
		id := uint(tid)
		f.TableID = &id
	}
	from, to, err := report.DateRange(c, "startDate", "endDate")
	if err != nil {
		return f, err
	}
	f.From, f.To = from, to
	return f, nil
}

// GET /api/orders?status=pending&tableId=1&startDate=2024-01-01&endDate=2024-01-31&limit=50
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		f.Limit = c.QueryInt("limit", 200)
		if f.Limit <= 0 || f.Limit > 1000 {
			f.Limit = 200
		}

		list, err := svc.List(c.UserContext(), est.ID, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Siparişler listelenemedi")
		}

		res := make([]OrderResponse, 0, len(list))
		for i := range list {
			res = append(res, ToResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/orders/export: her satır bir sipariş kalemi
func ExportOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		f, err := parseFilter(c)
		if err != nil {
			return err
		}

		list, err := svc.List(c.UserContext(), est.ID, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Siparişler listelenemedi")
		}

		rows := make([][]any, 0, len(list))
		for _, o := range list {
			tableName := ""
			if o.Table != nil {
				tableName = o.Table.Name
			}
			for _, it := range o.Items {
				rows = append(rows, []any{
					o.ID,
					o.CreatedAt.Format("2006-01-02 15:04"),
					string(o.Status),
					string(o.Source),
					tableName,
					it.Product.Name,
					it.Quantity,
					it.Price.InexactFloat64(),
					it.Total.InexactFloat64(),
					o.TotalAmount.InexactFloat64(),
				})
			}
		}

		buf, err := report.BuildXLSX("Siparisler", []string{
			"Sipariş", "Tarih", "Durum", "Kaynak", "Masa", "Ürün", "Miktar", "Birim Fiyat", "Satır Toplamı", "Sipariş Toplamı",
		}, rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		filename := fmt.Sprintf("siparisler-%s.xlsx", time.Now().Format("20060102"))
		return report.SendXLSX(c, filename, buf)
	}
}
