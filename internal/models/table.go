package models

import "time"

// Table: Masa. Token, masanın QR kodundaki anahtar.
type Table struct {
	ID              uint   `gorm:"primaryKey"`
	EstablishmentID uint   `gorm:"index;not null"`
	Name            string `gorm:"size:50;not null"`
	Seats           int    `gorm:"not null;default:0"`
	Token           string `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
