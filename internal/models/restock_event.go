package models

import "time"

// RestockEvent: Stok girişi kaydı. Sadece eklenir, güncellenmez/silinmez.
type RestockEvent struct {
	ID              uint `gorm:"primaryKey"`
	EstablishmentID uint `gorm:"index;not null"`
	ProductID       uint `gorm:"index;not null"`
	Product         Product
	Quantity        int       `gorm:"not null"`
	UserID          uint      `gorm:"not null"`
	CreatedAt       time.Time `gorm:"index"`
}
