package offline

import (
	"context"
	"errors"

	"restopos-backend/internal/models"
	"restopos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
)

// SyncFunc: Yerel API'den tetiklenen senkronizasyon; ajan giriş ve uzlaştırmayı kendisi yapar
type SyncFunc func(ctx context.Context) (FlushResult, error)

type NewDraftRequest struct {
	TableID *uint `json:"tableId"`
}

type AddItemRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type EnqueueRequest struct {
	Status models.OrderStatus `json:"status"`
}

// NewLocalApp: Kasa arayüzünün konuştuğu yerel API. Sadece localhost'a bağlanmalı.
func NewLocalApp(cache *Cache, sync SyncFunc) *fiber.App {
	app := web.NewApp()
	local := app.Group("/local")

	local.Get("/products", ListProductsHandler(cache))

	local.Post("/drafts", NewDraftHandler(cache))
	local.Get("/drafts/:id", GetDraftHandler(cache))
	local.Delete("/drafts/:id", DiscardDraftHandler(cache))
	local.Post("/drafts/:id/items", AddItemHandler(cache))
	local.Delete("/drafts/:id/items/:productId", RemoveItemHandler(cache))
	local.Post("/drafts/:id/enqueue", EnqueueHandler(cache))

	local.Get("/orders", ListOrdersHandler(cache))
	local.Post("/orders/:localId/retry", RetryOrderHandler(cache))
	local.Delete("/orders/:localId", DropOrderHandler(cache))

	local.Post("/sync", SyncHandler(sync))
	return app
}

// toFiberError: Cache hatalarını HTTP durumlarına çevirir; tanınmayanlar 500 olarak loglanır
func toFiberError(err error) error {
	var stock *LocalStockError
	switch {
	case errors.As(err, &stock):
		return fiber.NewError(fiber.StatusConflict, stock.Error())
	case errors.Is(err, ErrDraftNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Taslak sipariş bulunamadı")
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Kuyrukta sipariş bulunamadı")
	case errors.Is(err, ErrProductNotCached):
		return fiber.NewError(fiber.StatusNotFound, "Ürün yerel listede yok")
	case errors.Is(err, ErrEmptyDraft):
		return fiber.NewError(fiber.StatusBadRequest, "Taslak sipariş boş")
	case errors.Is(err, ErrInvalidStatus):
		return fiber.NewError(fiber.StatusBadRequest, "Durum completed veya paid olmalı")
	case errors.Is(err, ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, "Miktar 0'dan büyük olmalı")
	case errors.Is(err, ErrNotRejected):
		return fiber.NewError(fiber.StatusConflict, "Sadece reddedilmiş siparişler için geçerli")
	case errors.Is(err, ErrSyncInProgress):
		return fiber.NewError(fiber.StatusConflict, "Senkronizasyon zaten çalışıyor")
	}
	return err
}

// GET /local/products
func ListProductsHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := cache.Products(c.UserContext())
		if err != nil {
			return err
		}
		if products == nil {
			products = []Product{}
		}
		return c.JSON(products)
	}
}

// POST /local/drafts
func NewDraftHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body NewDraftRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
			}
		}
		d, err := cache.NewDraft(c.UserContext(), body.TableID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// GET /local/drafts/:id
func GetDraftHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := cache.Draft(c.UserContext(), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(d)
	}
}

// DELETE /local/drafts/:id
func DiscardDraftHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := cache.Discard(c.UserContext(), c.Params("id")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /local/drafts/:id/items
func AddItemHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "productId zorunlu")
		}
		d, err := cache.AddItem(c.UserContext(), c.Params("id"), body.ProductID, body.Quantity)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(d)
	}
}

// DELETE /local/drafts/:id/items/:productId?quantity=N
// quantity verilmezse satırın tamamı çıkarılır
func RemoveItemHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := c.ParamsInt("productId")
		if err != nil || productID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün id")
		}
		qty := c.QueryInt("quantity", 0)
		if qty < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Miktar negatif olamaz")
		}
		d, err := cache.RemoveItem(c.UserContext(), c.Params("id"), uint(productID), qty)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(d)
	}
}

// POST /local/drafts/:id/enqueue
func EnqueueHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EnqueueRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		o, err := cache.Enqueue(c.UserContext(), c.Params("id"), body.Status)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// GET /local/orders
func ListOrdersHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orders, err := cache.Orders(c.UserContext())
		if err != nil {
			return err
		}
		if orders == nil {
			orders = []Order{}
		}
		return c.JSON(orders)
	}
}

// POST /local/orders/:localId/retry
func RetryOrderHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := cache.Retry(c.UserContext(), c.Params("localId"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(o)
	}
}

// DELETE /local/orders/:localId
func DropOrderHandler(cache *Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := cache.Drop(c.UserContext(), c.Params("localId")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /local/sync
func SyncHandler(sync SyncFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := sync(c.UserContext())
		if err != nil {
			var remote *RemoteError
			if errors.As(err, &remote) {
				return fiber.NewError(fiber.StatusBadGateway, remote.Error())
			}
			if errors.Is(err, ErrSyncInProgress) {
				return toFiberError(err)
			}
			return fiber.NewError(fiber.StatusServiceUnavailable, "Sunucuya ulaşılamadı: "+err.Error())
		}
		return c.JSON(res)
	}
}
