package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorBody(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body["error"]
}

func TestErrorHandler(t *testing.T) {
	app := NewApp()
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "Yetersiz stok")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: connection refused")
	})

	code, msg := errorBody(t, app, "/conflict")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "Yetersiz stok", msg)

	// İç hata detayı istemciye sızmamalı
	code, msg = errorBody(t, app, "/boom")
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.Equal(t, "Beklenmeyen sunucu hatası", msg)

	code, _ = errorBody(t, app, "/missing")
	assert.Equal(t, fiber.StatusNotFound, code)
}
