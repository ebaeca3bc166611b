package catalog

import (
	"errors"
	"strings"

	"restopos-backend/internal/establishment"
	"restopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	ProductCount int64  `json:"productCount"`
	CreatedAt    string `json:"createdAt"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

func categoryNameTaken(db *gorm.DB, establishmentID uint, name string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Category{}).
		Where("establishment_id = ? AND name = ? AND id <> ?", establishmentID, name, exceptID).
		Count(&count).Error
	return count > 0, err
}

func findCategory(db *gorm.DB, c *fiber.Ctx, establishmentID uint) (*models.Category, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Geçersiz kategori id")
	}
	var cat models.Category
	if err := db.Where("id = ? AND establishment_id = ?", id, establishmentID).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}
		return nil, err
	}
	return &cat, nil
}

// GET /api/categories
func ListCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		var cats []models.Category
		if err := db.Where("establishment_id = ?", est.ID).Order("name asc").Find(&cats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategoriler listelenemedi")
		}

		type countRow struct {
			CategoryID uint
			Count      int64
		}
		var counts []countRow
		if err := db.Model(&models.Product{}).
			Select("category_id, COUNT(*) as count").
			Where("establishment_id = ? AND category_id IS NOT NULL", est.ID).
			Group("category_id").
			Scan(&counts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategoriler listelenemedi")
		}
		byID := make(map[uint]int64, len(counts))
		for _, r := range counts {
			byID[r.CategoryID] = r.Count
		}

		res := make([]CategoryResponse, 0, len(cats))
		for _, cat := range cats {
			res = append(res, CategoryResponse{
				ID:           cat.ID,
				Name:         cat.Name,
				ProductCount: byID[cat.ID],
				CreatedAt:    cat.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}

// POST /api/categories
func CreateCategoryHandler(db *gorm.DB, menu MenuCache) fiber.Handler {
	invalidate := Invalidator(menu)
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı zorunlu")
		}

		taken, err := categoryNameTaken(db, est.ID, body.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kategori zaten var")
		}

		cat := models.Category{EstablishmentID: est.ID, Name: body.Name}
		if err := db.Create(&cat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kategori zaten var")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori oluşturulamadı")
		}

		invalidate(est.Slug)
		return c.Status(fiber.StatusCreated).JSON(CategoryResponse{
			ID:        cat.ID,
			Name:      cat.Name,
			CreatedAt: cat.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler(db *gorm.DB, menu MenuCache) fiber.Handler {
	invalidate := Invalidator(menu)
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		cat, err := findCategory(db, c, est.ID)
		if err != nil {
			return err
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı boş olamaz")
		}

		taken, err := categoryNameTaken(db, est.ID, name, cat.ID)
		if err != nil {
			return err
		}
		if taken {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kategori zaten var")
		}

		cat.Name = name
		if err := db.Save(cat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kategori zaten var")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori güncellenemedi")
		}

		invalidate(est.Slug)
		return c.JSON(CategoryResponse{
			ID:        cat.ID,
			Name:      cat.Name,
			CreatedAt: cat.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// DELETE /api/categories/:id
// İçinde ürün olan kategori silinemez
func DeleteCategoryHandler(db *gorm.DB, menu MenuCache) fiber.Handler {
	invalidate := Invalidator(menu)
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		cat, err := findCategory(db, c, est.ID)
		if err != nil {
			return err
		}

		var count int64
		if err := db.Model(&models.Product{}).Where("category_id = ?", cat.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Kategoride ürün varken silinemez")
		}

		if err := db.Delete(&models.Category{}, cat.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori silinemedi")
		}

		invalidate(est.Slug)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
