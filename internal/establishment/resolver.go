package establishment

import (
	"errors"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const ctxEstablishmentKey = "establishment"

// Resolver: Oturumdaki kullanıcının işletmesini yükler. Admin route'larının hepsi bunun arkasında.
func Resolver(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var est models.Establishment
		if err := db.Where("owner_id = ?", userID).First(&est).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "İşletme bulunamadı, önce işletme oluşturun")
			}
			return err
		}

		c.Locals(ctxEstablishmentKey, &est)
		return c.Next()
	}
}

// FromCtx: Resolver'dan sonra çalışan handler'lar için
func FromCtx(c *fiber.Ctx) (*models.Establishment, error) {
	est, ok := c.Locals(ctxEstablishmentKey).(*models.Establishment)
	if !ok || est == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "İşletme bulunamadı")
	}
	return est, nil
}
