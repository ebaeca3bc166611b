package models

import "time"

// Establishment: İşletme (tenant). Diğer tüm kayıtlar buna bağlı.
type Establishment struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   uint   `gorm:"uniqueIndex;not null"` // kullanıcı başına tek işletme
	Name      string `gorm:"size:100;not null"`
	Slug      string `gorm:"size:100;uniqueIndex;not null"` // public menü URL anahtarı
	Email     string `gorm:"size:100"`
	Phone     string `gorm:"size:50"`
	Address   string `gorm:"size:255"`
	Latitude  *float64
	Longitude *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
