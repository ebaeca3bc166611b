package analytics

import (
	"time"

	"restopos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductSales struct {
	ProductID uint            `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"-"`
}

// TopProducts: Ödenmiş siparişlerde en çok satılanlar
func TopProducts(db *gorm.DB, establishmentID uint, from, to *time.Time, limit int) ([]ProductSales, error) {
	dbq := db.Table("order_items").
		Select("order_items.product_id AS product_id, products.name AS name, "+
			"SUM(order_items.quantity) AS quantity, SUM(order_items.total) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.establishment_id = ? AND orders.status = ?", establishmentID, models.OrderPaid)

	if from != nil {
		dbq = dbq.Where("orders.created_at >= ?", *from)
	}
	if to != nil {
		dbq = dbq.Where("orders.created_at < ?", *to)
	}

	var rows []ProductSales
	err := dbq.Group("order_items.product_id, products.name").
		Order("quantity DESC, revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// LowStock: Stok takipli ve miktarı eşik değerin altında/eşit ürünler
func LowStock(db *gorm.DB, establishmentID uint, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := db.Where("establishment_id = ? AND is_quantifiable = ? AND COALESCE(quantity, 0) <= ?",
		establishmentID, true, threshold).
		Order("quantity asc, name asc").
		Find(&products).Error
	return products, err
}
