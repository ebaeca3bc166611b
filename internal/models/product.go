package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductInactive
}

type Product struct {
	ID              uint `gorm:"primaryKey"`
	EstablishmentID uint `gorm:"index;not null"`
	CategoryID      *uint
	Category        *Category
	Name            string          `gorm:"size:100;not null"`
	Description     string          `gorm:"size:500"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsQuantifiable  bool            `gorm:"not null;default:false"`
	// Quantity sadece stok düşümü ve stok girişi (restock) tarafından değiştirilir
	Quantity  *int          `gorm:""`
	Status    ProductStatus `gorm:"size:20;not null;default:active"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
