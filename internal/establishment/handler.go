package establishment

import (
	"errors"
	"strings"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EstablishmentResponse struct {
	ID        uint     `json:"id"`
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	CreatedAt string   `json:"createdAt"`
}

type CreateEstablishmentRequest struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug"` // Opsiyonel, boşsa addan üretilir
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type UpdateEstablishmentRequest struct {
	Name      *string  `json:"name"`
	Slug      *string  `json:"slug"`
	Email     *string  `json:"email"`
	Phone     *string  `json:"phone"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func ToResponse(e *models.Establishment) EstablishmentResponse {
	return EstablishmentResponse{
		ID:        e.ID,
		Name:      e.Name,
		Slug:      e.Slug,
		Email:     e.Email,
		Phone:     e.Phone,
		Address:   e.Address,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		CreatedAt: e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func validCoordinates(lat, lng *float64) bool {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return false
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return false
	}
	return true
}

func slugTaken(db *gorm.DB, slug string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Establishment{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

// POST /api/establishment
func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateEstablishmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İşletme adı zorunlu")
		}

		slug := strings.TrimSpace(body.Slug)
		if slug == "" {
			slug = Slugify(body.Name)
		}
		if !ValidSlug(slug) {
			return fiber.NewError(fiber.StatusBadRequest, "Slug sadece küçük harf, rakam ve '-' içerebilir")
		}
		if !validCoordinates(body.Latitude, body.Longitude) {
			return fiber.NewError(fiber.StatusBadRequest, "Koordinatlar geçersiz")
		}

		var count int64
		if err := db.Model(&models.Establishment{}).Where("owner_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu kullanıcının zaten bir işletmesi var")
		}

		taken, err := slugTaken(db, slug, 0)
		if err != nil {
			return err
		}
		if taken {
			return fiber.NewError(fiber.StatusConflict, "Bu slug kullanılıyor")
		}

		est := models.Establishment{
			OwnerID:   userID,
			Name:      body.Name,
			Slug:      slug,
			Email:     strings.TrimSpace(body.Email),
			Phone:     strings.TrimSpace(body.Phone),
			Address:   strings.TrimSpace(body.Address),
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
		}
		if err := db.Create(&est).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İşletme oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(ToResponse(&est))
	}
}

// GET /api/establishment
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := FromCtx(c)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(est))
	}
}

// PUT /api/establishment
func UpdateHandler(db *gorm.DB, invalidate func(slug string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est, err := FromCtx(c)
		if err != nil {
			return err
		}
		oldSlug := est.Slug

		var body UpdateEstablishmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "İşletme adı boş olamaz")
			}
			est.Name = name
		}
		if body.Slug != nil {
			slug := strings.TrimSpace(*body.Slug)
			if !ValidSlug(slug) {
				return fiber.NewError(fiber.StatusBadRequest, "Slug sadece küçük harf, rakam ve '-' içerebilir")
			}
			taken, err := slugTaken(db, slug, est.ID)
			if err != nil {
				return err
			}
			if taken {
				return fiber.NewError(fiber.StatusConflict, "Bu slug kullanılıyor")
			}
			est.Slug = slug
		}
		if body.Email != nil {
			est.Email = strings.TrimSpace(*body.Email)
		}
		if body.Phone != nil {
			est.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			est.Address = strings.TrimSpace(*body.Address)
		}
		if body.Latitude != nil {
			est.Latitude = body.Latitude
		}
		if body.Longitude != nil {
			est.Longitude = body.Longitude
		}
		if !validCoordinates(est.Latitude, est.Longitude) {
			return fiber.NewError(fiber.StatusBadRequest, "Koordinatlar geçersiz")
		}

		if err := db.Save(est).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu slug kullanılıyor")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "İşletme güncellenemedi")
		}

		if invalidate != nil {
			invalidate(oldSlug)
		}
		return c.JSON(ToResponse(est))
	}
}
