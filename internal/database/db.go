package database

import (
	"fmt"
	"log"

	"restopos-backend/internal/config"
	"restopos-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open: Postgres bağlantısını açar. Global değişken yok, *gorm.DB çağırana döner.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}
	return db, nil
}

// Migrate: Tüm modeller için AutoMigrate
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Establishment{},
		&models.Category{},
		&models.Product{},
		&models.Table{},
		&models.Order{},
		&models.OrderItem{},
		&models.RestockEvent{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	log.Println("Veritabanı migration tamamlandı.")
	return nil
}
