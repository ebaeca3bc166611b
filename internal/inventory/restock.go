package inventory

import (
	"errors"
	"fmt"
	"time"

	"restopos-backend/internal/audit"
	"restopos-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("ürün bulunamadı")
	ErrNotQuantifiable = errors.New("ürün stok takipli değil")
	ErrInvalidQuantity = errors.New("miktar 0'dan büyük olmalı")
)

// Restock: Stok giriş kaydı ekler ve ürün miktarını aynı transaction içinde artırır
func Restock(db *gorm.DB, establishmentID, userID, productID uint, quantity int) (*models.RestockEvent, *models.Product, error) {
	if quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}

	var event models.RestockEvent
	var product models.Product

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND establishment_id = ?", productID, establishmentID).
			First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if !product.IsQuantifiable {
			return ErrNotQuantifiable
		}
		before := product

		event = models.RestockEvent{
			EstablishmentID: establishmentID,
			ProductID:       product.ID,
			Quantity:        quantity,
			UserID:          userID,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("quantity", gorm.Expr("COALESCE(quantity, 0) + ?", quantity)).Error; err != nil {
			return err
		}
		if err := tx.First(&product, product.ID).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			EstablishmentID: establishmentID,
			UserID:          &userID,
			EntityType:      "restock_event",
			EntityID:        event.ID,
			Action:          models.AuditActionCreate,
			Description:     fmt.Sprintf("Stok girişi: %s +%d", product.Name, quantity),
			Before:          before,
			After:           product,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	event.Product = product
	return &event, &product, nil
}

type RestockFilter struct {
	ProductID *uint
	From      *time.Time // dahil
	To        *time.Time // hariç
}

func ListRestockEvents(db *gorm.DB, establishmentID uint, f RestockFilter) ([]models.RestockEvent, error) {
	dbq := db.Preload("Product").Where("establishment_id = ?", establishmentID)
	if f.ProductID != nil {
		dbq = dbq.Where("product_id = ?", *f.ProductID)
	}
	if f.From != nil {
		dbq = dbq.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("created_at < ?", *f.To)
	}

	var events []models.RestockEvent
	if err := dbq.Order("created_at DESC, id DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
