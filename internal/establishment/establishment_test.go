package establishment

import (
	"net/http"
	"testing"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/testutil"
	"restopos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newEstablishmentApp(t *testing.T, db *gorm.DB, userID uint, invalidated *[]string) *fiber.App {
	t.Helper()
	app := web.NewApp()
	session := func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		return c.Next()
	}
	app.Post("/api/establishment", session, CreateHandler(db))
	admin := app.Group("/api", session, Resolver(db))
	admin.Get("/establishment", GetHandler())
	admin.Put("/establishment", UpdateHandler(db, func(slug string) {
		*invalidated = append(*invalidated, slug)
	}))
	return app
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Çınaraltı Köfte & Izgara": "cinaralti-kofte-izgara",
		"  Kafe Deniz  ":           "kafe-deniz",
		"Şişli Döner 2":            "sisli-doner-2",
		"---":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}

	assert.True(t, ValidSlug("kafe-deniz"))
	assert.False(t, ValidSlug("Kafe"))
	assert.False(t, ValidSlug("kafe--deniz"))
	assert.False(t, ValidSlug(""))
}

func TestEstablishmentLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "owner@example.com")
	var invalidated []string
	app := newEstablishmentApp(t, db, user.ID, &invalidated)

	resp := testutil.DoJSON(t, app, http.MethodGet, "/api/establishment", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = testutil.DoJSON(t, app, http.MethodPost, "/api/establishment", map[string]any{
		"name": "Çınaraltı Köfte", "latitude": 41.0, "longitude": 29.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := testutil.DecodeJSON[EstablishmentResponse](t, resp)
	assert.Equal(t, "cinaralti-kofte", created.Slug)

	resp = testutil.DoJSON(t, app, http.MethodPost, "/api/establishment", map[string]any{"name": "İkinci"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = testutil.DoJSON(t, app, http.MethodGet, "/api/establishment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, testutil.DecodeJSON[EstablishmentResponse](t, resp).ID)

	resp = testutil.DoJSON(t, app, http.MethodPut, "/api/establishment", map[string]any{"slug": "köfteci"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "ASCII dışı slug reddedilmeli")

	resp = testutil.DoJSON(t, app, http.MethodPut, "/api/establishment", map[string]any{"slug": "kofteci", "phone": " 555 "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := testutil.DecodeJSON[EstablishmentResponse](t, resp)
	assert.Equal(t, "kofteci", updated.Slug)
	assert.Equal(t, "555", updated.Phone)
	assert.Equal(t, []string{"cinaralti-kofte"}, invalidated, "eski slug'ın menü önbelleği temizlenmeli")
}

func TestEstablishmentValidation(t *testing.T) {
	db := testutil.NewDB(t)
	other := testutil.CreateUser(t, db, "other@example.com")
	testutil.CreateEstablishment(t, db, other.ID, "alinmis")

	user := testutil.CreateUser(t, db, "owner@example.com")
	var invalidated []string
	app := newEstablishmentApp(t, db, user.ID, &invalidated)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"ad zorunlu", map[string]any{"name": "  "}, http.StatusBadRequest},
		{"geçersiz slug", map[string]any{"name": "Kafe", "slug": "Kafe Deniz"}, http.StatusBadRequest},
		{"koordinat aralık dışı", map[string]any{"name": "Kafe", "latitude": 91.0}, http.StatusBadRequest},
		{"slug kullanımda", map[string]any{"name": "Kafe", "slug": "alinmis"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, app, http.MethodPost, "/api/establishment", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
