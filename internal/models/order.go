package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderPaid, OrderCancelled:
		return true
	}
	return false
}

type OrderSource string

const (
	SourceTable  OrderSource = "table"
	SourcePublic OrderSource = "public"
	SourceManual OrderSource = "manual"
)

// CustomerSnapshot: Masasız public siparişte müşterinin o anki iletişim bilgisi
type CustomerSnapshot struct {
	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
	Phone     string `gorm:"size:50"`
	Address   string `gorm:"size:255"`
}

type Order struct {
	ID              uint `gorm:"primaryKey"`
	EstablishmentID uint `gorm:"index;not null;uniqueIndex:idx_orders_client_ref,priority:1"`
	TableID         *uint
	Table           *Table
	Customer        CustomerSnapshot `gorm:"embedded;embeddedPrefix:customer_"`
	Source          OrderSource      `gorm:"size:20;not null"`
	Status          OrderStatus      `gorm:"size:20;index;not null"`
	// TotalAmount oluşturma anında hesaplanır, sonradan değişmez
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time       `gorm:"index"`
	UpdatedAt   time.Time

	// ClientRef: Kasa cihazının yerel sipariş id'si; aynı sipariş ikinci kez gönderilirse mevcut kayıt döner
	ClientRef *string `gorm:"size:64;uniqueIndex:idx_orders_client_ref,priority:2"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"` // birim fiyat (sipariş anındaki)
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null"` // Price * Quantity
	CreatedAt time.Time
}
