package tables

import (
	"errors"
	"strings"

	"restopos-backend/internal/establishment"
	"restopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TableResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Seats     int    `json:"seats"`
	Token     string `json:"token"`
	MenuURL   string `json:"menuUrl"`
	CreatedAt string `json:"createdAt"`
}

type CreateTableRequest struct {
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

type UpdateTableRequest struct {
	Name  *string `json:"name"`
	Seats *int    `json:"seats"`
}

// PublicTableResponse: QR okutan müşteriye dönen bilgi, token dahil değil
type PublicTableResponse struct {
	TableID           uint   `json:"tableId"`
	TableName         string `json:"tableName"`
	EstablishmentID   uint   `json:"establishmentId"`
	EstablishmentName string `json:"establishmentName"`
	Slug              string `json:"slug"`
}

func toResponse(t *models.Table, qr MenuQRGenerator, slug string) TableResponse {
	return TableResponse{
		ID:        t.ID,
		Name:      t.Name,
		Seats:     t.Seats,
		Token:     t.Token,
		MenuURL:   qr.URL(slug, t.Token),
		CreatedAt: t.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func findTable(db *gorm.DB, c *fiber.Ctx, establishmentID uint) (*models.Table, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Geçersiz masa id")
	}
	var t models.Table
	if err := db.Where("id = ? AND establishment_id = ?", id, establishmentID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Masa bulunamadı")
		}
		return nil, err
	}
	return &t, nil
}

// GET /api/tables
func ListTablesHandler(db *gorm.DB, qr MenuQRGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		var list []models.Table
		if err := db.Where("establishment_id = ?", est.ID).Order("name asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Masalar listelenemedi")
		}

		res := make([]TableResponse, 0, len(list))
		for i := range list {
			res = append(res, toResponse(&list[i], qr, est.Slug))
		}
		return c.JSON(res)
	}
}

// POST /api/tables
func CreateTableHandler(db *gorm.DB, qr MenuQRGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}

		var body CreateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Masa adı zorunlu")
		}
		if body.Seats < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Kişi sayısı negatif olamaz")
		}

		t := models.Table{
			EstablishmentID: est.ID,
			Name:            body.Name,
			Seats:           body.Seats,
			Token:           newToken(),
		}
		if err := db.Create(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Masa oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(&t, qr, est.Slug))
	}
}

// PUT /api/tables/:id
func UpdateTableHandler(db *gorm.DB, qr MenuQRGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		t, err := findTable(db, c, est.ID)
		if err != nil {
			return err
		}

		var body UpdateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Masa adı boş olamaz")
			}
			t.Name = name
		}
		if body.Seats != nil {
			if *body.Seats < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Kişi sayısı negatif olamaz")
			}
			t.Seats = *body.Seats
		}

		if err := db.Save(t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Masa güncellenemedi")
		}
		return c.JSON(toResponse(t, qr, est.Slug))
	}
}

// DELETE /api/tables/:id
// Açık siparişi olan masa silinmez; kapanmış siparişlerin masa bağlantısı kaldırılır
func DeleteTableHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		t, err := findTable(db, c, est.ID)
		if err != nil {
			return err
		}

		var open int64
		if err := db.Model(&models.Order{}).
			Where("table_id = ? AND status IN ?", t.ID, []models.OrderStatus{models.OrderPending, models.OrderCompleted}).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return fiber.NewError(fiber.StatusConflict, "Açık siparişi olan masa silinemez")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Order{}).Where("table_id = ?", t.ID).
				Update("table_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Table{}, t.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Masa silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/tables/:id/qr (PNG)
func TableQRHandler(db *gorm.DB, qr QRGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		t, err := findTable(db, c, est.ID)
		if err != nil {
			return err
		}

		png, err := qr.Generate(est.Slug, t.Token)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "QR kod oluşturulamadı")
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}

// POST /api/tables/:id/rotate-token
// Eski token'la basılmış QR kodlar geçersiz olur
func RotateTokenHandler(db *gorm.DB, qr MenuQRGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := establishment.FromCtx(c)
		if err != nil {
			return err
		}
		t, err := findTable(db, c, est.ID)
		if err != nil {
			return err
		}

		t.Token = newToken()
		if err := db.Model(t).Update("token", t.Token).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token yenilenemedi")
		}
		return c.JSON(toResponse(t, qr, est.Slug))
	}
}

// FindByToken: Public sipariş akışı için; masa ve işletmesi birlikte döner
func FindByToken(db *gorm.DB, token string) (*models.Table, *models.Establishment, error) {
	var t models.Table
	if err := db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, nil, err
	}
	var est models.Establishment
	if err := db.First(&est, t.EstablishmentID).Error; err != nil {
		return nil, nil, err
	}
	return &t, &est, nil
}

// GET /api/public/tables/:token
func PublicTableHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, est, err := FindByToken(db, c.Params("token"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Masa bulunamadı")
			}
			return err
		}
		return c.JSON(PublicTableResponse{
			TableID:           t.ID,
			TableName:         t.Name,
			EstablishmentID:   est.ID,
			EstablishmentName: est.Name,
			Slug:              est.Slug,
		})
	}
}
