package server

import (
	"context"
	"strings"
	"time"

	"restopos-backend/internal/analytics"
	"restopos-backend/internal/audit"
	"restopos-backend/internal/auth"
	"restopos-backend/internal/catalog"
	"restopos-backend/internal/config"
	"restopos-backend/internal/establishment"
	"restopos-backend/internal/events"
	"restopos-backend/internal/inventory"
	"restopos-backend/internal/orders"
	"restopos-backend/internal/tables"
	"restopos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	MenuCache catalog.MenuCache // nil ise önbellek kapalı
	Events    events.Publisher  // nil ise event yayınlanmaz
	Now       func() time.Time  // analitik pencereleri için; nil ise time.Now
}

// New: Tüm route'ları kayıtlı fiber uygulamasını döner
func New(d Deps) *fiber.App {
	if d.MenuCache == nil {
		d.MenuCache = catalog.NopMenuCache{}
	}
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	cfg, db := d.Config, d.DB
	invalidate := catalog.Invalidator(d.MenuCache)
	qr := tables.MenuQRGenerator{BaseURL: cfg.PublicBaseURL}
	svc := orders.NewService(db, d.Events)

	app := web.NewApp()

	// CORS origins virgülle ayrılmış string'den geliyor
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	allowOrigins := strings.Join(corsOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		// Wildcard origin ile cookie gönderilemez
		AllowCredentials: allowOrigins != "*",
	}))

	api := app.Group("/api")

	api.Get("/health", HealthHandler(db))

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg, db))
	api.Post("/auth/logout", auth.LogoutHandler(cfg))

	// Public: QR menü ve müşteri siparişleri
	api.Get("/public/menu/:slug", catalog.PublicMenuHandler(db, d.MenuCache))
	api.Get("/public/tables/:token", tables.PublicTableHandler(db))
	api.Post("/orders", orders.CreateTableOrderHandler(db, svc))
	api.Post("/orders/public", orders.CreatePublicOrderHandler(svc))

	// Oturum gerekli, işletme henüz olmayabilir
	session := auth.SessionMiddleware(cfg)
	api.Get("/auth/me", session, auth.MeHandler(db))
	api.Post("/establishment", session, establishment.CreateHandler(db))

	// Admin: oturum + işletme
	admin := api.Group("", session, establishment.Resolver(db))

	admin.Get("/establishment", establishment.GetHandler())
	admin.Put("/establishment", establishment.UpdateHandler(db, invalidate))

	admin.Get("/categories", catalog.ListCategoriesHandler(db))
	admin.Post("/categories", catalog.CreateCategoryHandler(db, d.MenuCache))
	admin.Put("/categories/:id", catalog.UpdateCategoryHandler(db, d.MenuCache))
	admin.Delete("/categories/:id", catalog.DeleteCategoryHandler(db, d.MenuCache))

	admin.Get("/products", catalog.ListProductsHandler(db))
	admin.Get("/products/:id", catalog.GetProductHandler(db))
	admin.Post("/products", catalog.CreateProductHandler(db, d.MenuCache))
	admin.Put("/products/:id", catalog.UpdateProductHandler(db, d.MenuCache))
	admin.Delete("/products/:id", catalog.DeleteProductHandler(db, d.MenuCache))

	admin.Get("/tables", tables.ListTablesHandler(db, qr))
	admin.Post("/tables", tables.CreateTableHandler(db, qr))
	admin.Put("/tables/:id", tables.UpdateTableHandler(db, qr))
	admin.Delete("/tables/:id", tables.DeleteTableHandler(db))
	admin.Get("/tables/:id/qr", tables.TableQRHandler(db, qr))
	admin.Post("/tables/:id/rotate-token", tables.RotateTokenHandler(db, qr))

	admin.Get("/orders", orders.ListOrdersHandler(svc))
	admin.Get("/orders/export", orders.ExportOrdersHandler(svc))
	admin.Post("/orders/manual", orders.CreateManualOrderHandler(svc, invalidate))
	admin.Get("/orders/:id", orders.GetOrderHandler(svc))
	admin.Patch("/orders/:id", orders.UpdateStatusHandler(svc, invalidate))
	admin.Delete("/orders/:id", orders.DeleteOrderHandler(svc))

	admin.Post("/restock", inventory.CreateRestockHandler(db, d.Events, invalidate))
	admin.Get("/restock", inventory.ListRestockHandler(db))
	admin.Get("/restock/export", inventory.ExportRestockHandler(db))

	admin.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	admin.Get("/analytics/sales", analytics.SalesHandler(db, d.Now))
	admin.Get("/analytics/top-products", analytics.TopProductsHandler(db))
	admin.Get("/analytics/low-stock", analytics.LowStockHandler(db))

	return app
}

// GET /api/health
func HealthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Veritabanı bağlantısı yok")
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Veritabanına ulaşılamıyor")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
