// Package web: Fiber uygulamasının ortak ayarları. Route kaydı internal/server'da.
package web

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// NewApp: Hata gövdesi her zaman {"error": "..."} olan fiber uygulaması
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "restopos",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: ErrorHandler,
	})
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Beklenmeyen sunucu hatası",
	})
}
