// Package testutil: Testler için in-memory SQLite veritabanı ve örnek kayıtlar
package testutil

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"restopos-backend/internal/config"
	"restopos-backend/internal/database"
	"restopos-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

const TestSecret = "test-secret-test-secret-test-secret-0123"

func Config() *config.Config {
	return &config.Config{
		HTTPPort:          "0",
		JWTSecret:         TestSecret,
		SessionCookieName: "session",
		SessionTTL:        24 * time.Hour,
		CORSOrigins:       "*",
		PublicBaseURL:     "https://menu.example.com",
		KafkaTopic:        "test.events",
	}
}

// NewDB: Her test için ayrı, migrate edilmiş in-memory veritabanı
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := unsafeNameChars.ReplaceAllString(t.Name(), "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Transaction içindeyken başka bağlantı açılmasın (SQLite kilitleri)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Name: "Test " + email, Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func CreateEstablishment(t *testing.T, db *gorm.DB, ownerID uint, slug string) models.Establishment {
	t.Helper()
	e := models.Establishment{OwnerID: ownerID, Name: "Place " + slug, Slug: slug}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// CreateProduct: qty nil ise ürün stok takipsiz (quantifiable değil)
func CreateProduct(t *testing.T, db *gorm.DB, establishmentID uint, name string, price string, qty *int) models.Product {
	t.Helper()
	p := models.Product{
		EstablishmentID: establishmentID,
		Name:            name,
		Price:           decimal.RequireFromString(price),
		IsQuantifiable:  qty != nil,
		Quantity:        qty,
		Status:          models.ProductActive,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func CreateTable(t *testing.T, db *gorm.DB, establishmentID uint, name, token string) models.Table {
	t.Helper()
	tb := models.Table{EstablishmentID: establishmentID, Name: name, Token: token}
	require.NoError(t, db.Create(&tb).Error)
	return tb
}

func ProductQuantity(t *testing.T, db *gorm.DB, productID uint) *int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Quantity
}

func IntPtr(v int) *int { return &v }
