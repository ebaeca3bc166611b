package inventory

import (
	"errors"
	"fmt"

	"restopos-backend/internal/models"

	"gorm.io/gorm"
)

// InsufficientStockError: Transaction'ı geri aldırmak için döndürülür
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Yetersiz stok: %s (mevcut: %d, istenen: %d)", e.ProductName, e.Available, e.Requested)
}

func IsInsufficientStock(err error) bool {
	var e *InsufficientStockError
	return errors.As(err, &e)
}

type StockLine struct {
	ProductID uint
	Quantity  int
}

// DeductForOrder: Stok takipli ürünlerin miktarını düşer. Mutlaka bir transaction (tx) içinde çağrılmalı;
// hata dönerse çağıran transaction'ı geri almalı, aksi halde bazı ürünler düşülmüş kalır.
func DeductForOrder(tx *gorm.DB, establishmentID uint, lines []StockLine) error {
	// Aynı ürün birden fazla satırda olabilir, toplam üzerinden kontrol et
	totals := make(map[uint]int, len(lines))
	order := make([]uint, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("geçersiz miktar: ürün %d, miktar %d", l.ProductID, l.Quantity)
		}
		if _, seen := totals[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		totals[l.ProductID] += l.Quantity
	}

	for _, productID := range order {
		requested := totals[productID]

		var product models.Product
		if err := tx.Where("id = ? AND establishment_id = ?", productID, establishmentID).
			First(&product).Error; err != nil {
			return err
		}
		if !product.IsQuantifiable {
			continue
		}

		available := 0
		if product.Quantity != nil {
			available = *product.Quantity
		}
		if available < requested {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   available,
				Requested:   requested,
			}
		}

		// Koşullu düşüm: okuma ile yazma arasında başka bir istek stoğu azalttıysa 0 satır etkilenir
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", product.ID, requested).
			Update("quantity", gorm.Expr("quantity - ?", requested))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Product
			if err := tx.First(&current, product.ID).Error; err != nil {
				return err
			}
			now := 0
			if current.Quantity != nil {
				now = *current.Quantity
			}
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   now,
				Requested:   requested,
			}
		}
	}

	return nil
}
