package catalog

import (
	"errors"
	"strings"
	"time"

	"restopos-backend/internal/establishment"
	"restopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductResponse struct {
	ID             uint                 `json:"id"`
	CategoryID     *uint                `json:"categoryId"`
	CategoryName   string               `json:"categoryName"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Price          float64              `json:"price"`
	IsQuantifiable bool                 `json:"isQuantifiable"`
	Quantity       *int                 `json:"quantity"`
	Status         models.ProductStatus `json:"status"`
	CreatedAt      string               `json:"createdAt"`
	UpdatedAt      string               `json:"updatedAt"`
}

type CreateProductRequest struct {
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Price          decimal.Decimal      `json:"price"`
	CategoryID     *uint                `json:"categoryId"`
	IsQuantifiable bool                 `json:"isQuantifiable"`
	Quantity       *int                 `json:"quantity"` // Sadece ilk kayıtta, stok takipli ürünler için
	Status         models.ProductStatus `json:"status"`
}

// UpdateProductRequest: Miktar alanı yok; stok sadece restock ve sipariş ödemesiyle değişir
type UpdateProductRequest struct {
	Name           *string               `json:"name"`
	Description    *string               `json:"description"`
	Price          *decimal.Decimal      `json:"price"`
	CategoryID     *uint                 `json:"categoryId"`
	ClearCategory  bool                  `json:"clearCategory"`
	IsQuantifiable *bool                 `json:"isQuantifiable"`
	Status         *models.ProductStatus `json:"status"`
}

func ToProductResponse(p *models.Product) ProductResponse {
	res := ProductResponse{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price.InexactFloat64(),
		IsQuantifiable: p.IsQuantifiable,
		Quantity:       p.Quantity,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:      p.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if p.Category != nil {
		res.CategoryName = p.Category.Name
	}
	return res
}

func checkCategory(db *gorm.DB, establishmentID uint, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	if err := db.Model(&models.Category{}).
		Where("id = ? AND establishment_id = ?", *categoryID, establishmentID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
	}
	return nil
}

func findProduct(db *gorm.DB, c *fiber.Ctx, establishmentID uint) (*models.Product, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün id")
	}
	var p models.Product
	if err := db.Preload("Category").
		Where("id = ? AND establishment_id = ?", id, establishmentID).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		return nil, err
	}
	return &p, nil
}

// GET /api/products?categoryId=1&status=active
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		dbq := db.Preload("Category").Where("establishment_id = ?", est.ID)

		if c.Query("categoryId") != "" {
			cid := c.QueryInt("categoryId", 0)
			if cid <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "categoryId geçersiz")
			}
			dbq = dbq.Where("category_id = ?", cid)
		}
		if s := c.Query("status"); s != "" {
			status := models.ProductStatus(s)
			if !status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status active veya inactive olmalı")
			}
			dbq = dbq.Where("status = ?", status)
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		res := make([]ProductResponse, 0, len(products))
		for i := range products {
			res = append(res, ToProductResponse(&products[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/products/:id
func GetProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		p, err := findProduct(db, c, est.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToProductResponse(p))
	}
}

// POST /api/products
func CreateProductHandler(db *gorm.DB, menu MenuCache) fiber.Handler {
	invalidate := Invalidator(menu)
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün adı zorunlu")
		}
		if body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
		}
		if body.Status == "" {
			body.Status = models.ProductActive
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "status active veya inactive olmalı")
		}
		if err := checkCategory(db, est.ID, body.CategoryID); err != nil {
			return err
		}

		var qty *int
		if body.IsQuantifiable {
			q := 0
			if body.Quantity != nil {
				if *body.Quantity < 0 {
					return fiber.NewError(fiber.StatusBadRequest, "Stok miktarı negatif olamaz")
				}
				q = *body.Quantity
			}
			qty = &q
		}

		p := models.Product{
			EstablishmentID: est.ID,
			CategoryID:      body.CategoryID,
			Name:            body.Name,
			Description:     strings.TrimSpace(body.Description),
			Price:           body.Price.Round(2),
			IsQuantifiable:  body.IsQuantifiable,
			Quantity:        qty,
			Status:          body.Status,
		}
		if err := db.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}
		if p.CategoryID != nil {
			var cat models.Category
			if err := db.First(&cat, *p.CategoryID).Error; err == nil {
				p.Category = &cat
			}
		}

		invalidate(est.Slug)
		return c.Status(fiber.StatusCreated).JSON(ToProductResponse(&p))
	}
}

// PUT /api/products/:id
// Sadece Select edilen kolonlar yazılır; quantity hiçbir koşulda ezilmez
func UpdateProductHandler(db *gorm.DB, menu MenuCache) fiber.Handler {
	invalidate := Invalidator(menu)
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		p, err := findProduct(db, c, est.ID)
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Ürün adı boş olamaz")
			}
			p.Name = name
		}
		if body.Description != nil {
			p.Description = strings.TrimSpace(*body.Description)
		}
		if body.Price != nil {
			if body.Price.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
			}
			p.Price = body.Price.Round(2)
		}
		if body.ClearCategory {
			p.CategoryID = nil
		} else if body.CategoryID != nil {
			if err := checkCategory(db, est.ID, body.CategoryID); err != nil {
				return err
			}
			p.CategoryID = body.CategoryID
		}
		enableTracking := false
		if body.IsQuantifiable != nil {
			enableTracking = *body.IsQuantifiable && !p.IsQuantifiable
			p.IsQuantifiable = *body.IsQuantifiable
		}
		if body.Status != nil {
			if !body.Status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status active veya inactive olmalı")
			}
			p.Status = *body.Status
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Product{ID: p.ID}).
				Select("name", "description", "price", "category_id", "is_quantifiable", "status", "updated_at").
				Updates(map[string]any{
					"name":            p.Name,
					"description":     p.Description,
					"price":           p.Price,
					"category_id":     p.CategoryID,
					"is_quantifiable": p.IsQuantifiable,
					"status":          p.Status,
					"updated_at":      time.Now(),
				}).Error; err != nil {
				return err
			}
			// Stok takibi yeni açıldıysa boş miktar 0'dan başlar; dolu miktara dokunulmaz
			if enableTracking {
				return tx.Model(&models.Product{}).
					Where("id = ? AND quantity IS NULL", p.ID).
					Update("quantity", 0).Error
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
		}

		var fresh models.Product
		if err := db.Preload("Category").First(&fresh, p.ID).Error; err != nil {
			return err
		}

		invalidate(est.Slug)
		return c.JSON(ToProductResponse(&fresh))
	}
}

// DELETE /api/products/:id
// Siparişte veya stok girişinde geçen ürün silinmez, pasife alınmalı
func DeleteProductHandler(db *gorm.DB, menu MenuCache) fiber.Handler {
	invalidate := Invalidator(menu)
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		p, err := findProduct(db, c, est.ID)
		if err != nil {
			return err
		}

		var used int64
		if err := db.Model(&models.OrderItem{}).Where("product_id = ?", p.ID).Count(&used).Error; err != nil {
			return err
		}
		if used == 0 {
			if err := db.Model(&models.RestockEvent{}).Where("product_id = ?", p.ID).Count(&used).Error; err != nil {
				return err
			}
		}
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, "Geçmiş kaydı olan ürün silinemez, pasife alın")
		}

		if err := db.Delete(&models.Product{}, p.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}

		invalidate(est.Slug)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
