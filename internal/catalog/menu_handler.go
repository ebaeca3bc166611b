package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"restopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MenuEstablishment struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type MenuProduct struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	InStock     bool    `json:"inStock"`
}

type MenuCategory struct {
	ID       *uint         `json:"id"` // kategorisiz ürünler için nil
	Name     string        `json:"name"`
	Products []MenuProduct `json:"products"`
}

type MenuResponse struct {
	Establishment MenuEstablishment `json:"establishment"`
	Categories    []MenuCategory    `json:"categories"`
}

const uncategorizedName = "Diğer"

// BuildMenu: Aktif ürünler, kategori adına göre sıralı; kategorisizler en sonda
func BuildMenu(db *gorm.DB, est *models.Establishment) (*MenuResponse, error) {
	var cats []models.Category
	if err := db.Where("establishment_id = ?", est.ID).Order("name asc").Find(&cats).Error; err != nil {
		return nil, err
	}
	var products []models.Product
	if err := db.Where("establishment_id = ? AND status = ?", est.ID, models.ProductActive).
		Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}

	byCategory := make(map[uint][]MenuProduct)
	var loose []MenuProduct
	for _, p := range products {
		mp := MenuProduct{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.InexactFloat64(),
			InStock:     !p.IsQuantifiable || (p.Quantity != nil && *p.Quantity > 0),
		}
		if p.CategoryID == nil {
			loose = append(loose, mp)
			continue
		}
		byCategory[*p.CategoryID] = append(byCategory[*p.CategoryID], mp)
	}

	menu := &MenuResponse{
		Establishment: MenuEstablishment{
			ID:      est.ID,
			Name:    est.Name,
			Slug:    est.Slug,
			Phone:   est.Phone,
			Address: est.Address,
		},
		Categories: make([]MenuCategory, 0, len(cats)+1),
	}
	for _, cat := range cats {
		items := byCategory[cat.ID]
		if len(items) == 0 {
			continue
		}
		id := cat.ID
		menu.Categories = append(menu.Categories, MenuCategory{ID: &id, Name: cat.Name, Products: items})
	}
	if len(loose) > 0 {
		menu.Categories = append(menu.Categories, MenuCategory{Name: uncategorizedName, Products: loose})
	}
	return menu, nil
}

// GET /api/public/menu/:slug
func PublicMenuHandler(db *gorm.DB, cache MenuCache) fiber.Handler {
	if cache == nil {
		cache = NopMenuCache{}
	}
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")

		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		body, hit, err := cache.Get(ctx, slug)
		cancel()
		if err != nil {
			log.Printf("[WARN] menü cache okunamadı (%s): %v", slug, err)
		}
		if hit {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			c.Set("X-Cache", "HIT")
			return c.Send(body)
		}

		var est models.Establishment
		if err := db.Where("slug = ?", slug).First(&est).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Menü bulunamadı")
			}
			return err
		}

		menu, err := BuildMenu(db, &est)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menü yüklenemedi")
		}
		body, err = json.Marshal(menu)
		if err != nil {
			return err
		}

		ctx, cancel = context.WithTimeout(c.UserContext(), time.Second)
		if err := cache.Set(ctx, slug, body); err != nil {
			log.Printf("[WARN] menü cache yazılamadı (%s): %v", slug, err)
		}
		cancel()

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		c.Set("X-Cache", "MISS")
		return c.Send(body)
	}
}
