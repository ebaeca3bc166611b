package models

import "time"

type Category struct {
	ID              uint   `gorm:"primaryKey"`
	EstablishmentID uint   `gorm:"not null;uniqueIndex:idx_category_establishment_name"`
	Name            string `gorm:"size:100;not null;uniqueIndex:idx_category_establishment_name"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
