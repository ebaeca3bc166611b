package auth

import (
	"strings"

	"restopos-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const CtxUserIDKey = "user_id"

// SessionMiddleware: Token önce HTTP-only cookie'den, yoksa "Bearer" header'dan okunur
func SessionMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(cfg.SessionCookieName)
		if tokenStr == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}
		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Oturum bulunamadı")
		}

		claims, err := ParseToken(cfg, tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Geçersiz veya süresi dolmuş oturum")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		return c.Next()
	}
}

// UserID: SessionMiddleware'den sonra çağrılmalı
func UserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || id == 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Oturum bulunamadı")
	}
	return id, nil
}
