package report

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const DateLayout = "2006-01-02"

// DateRange: ?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD okur.
// Bitiş günü dahildir; dönen `to` bitişten sonraki günün başlangıcıdır (hariç).
func DateRange(c *fiber.Ctx, startKey, endKey string) (from, to *time.Time, err error) {
	if s := c.Query(startKey); s != "" {
		t, perr := time.ParseInLocation(DateLayout, s, time.Local)
		if perr != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, startKey+" formatı YYYY-MM-DD olmalı")
		}
		from = &t
	}
	if s := c.Query(endKey); s != "" {
		t, perr := time.ParseInLocation(DateLayout, s, time.Local)
		if perr != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, endKey+" formatı YYYY-MM-DD olmalı")
		}
		next := t.AddDate(0, 0, 1)
		to = &next
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Başlangıç tarihi bitiş tarihinden sonra olamaz")
	}
	return from, to, nil
}
