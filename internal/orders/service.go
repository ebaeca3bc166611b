package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restopos-backend/internal/audit"
	"restopos-backend/internal/events"
	"restopos-backend/internal/inventory"
	"restopos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound         = errors.New("sipariş bulunamadı")
	ErrProductNotFound       = errors.New("ürün bulunamadı")
	ErrTableNotFound         = errors.New("masa bulunamadı")
	ErrEstablishmentNotFound = errors.New("işletme bulunamadı")
	ErrNoItems               = errors.New("sipariş en az bir ürün içermeli")
	ErrInvalidStatus         = errors.New("geçersiz sipariş durumu")
	ErrTerminalState         = errors.New("ödenmiş veya iptal edilmiş sipariş silinemez")
	ErrConcurrentUpdate      = errors.New("sipariş başka bir işlemle değiştirildi, tekrar deneyin")
)

// ItemError: Tek bir sipariş satırındaki doğrulama hatası
type ItemError struct {
	Index  int
	Reason string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%d. ürün geçersiz: %s", e.Index+1, e.Reason)
}

type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("sipariş durumu %s -> %s olarak değiştirilemez", e.From, e.To)
}

// allowedTransitions: Aynı duruma geçiş no-op olarak kabul edilir
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderPending, models.OrderCompleted, models.OrderPaid, models.OrderCancelled},
	models.OrderCompleted: {models.OrderCompleted, models.OrderPaid},
	models.OrderPaid:      {models.OrderPaid},
	models.OrderCancelled: {models.OrderCancelled},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type ItemInput struct {
	ProductID uint            `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // Müşteriye gösterilen birim fiyat, olduğu gibi saklanır
}

type CreateInput struct {
	EstablishmentID uint
	TableID         *uint
	Customer        *models.CustomerSnapshot
	Source          models.OrderSource
	Status          models.OrderStatus
	Items           []ItemInput
	UserID          *uint
	ClientRef       string // boş değilse işletme içinde tekil
}

type Filter struct {
	Status  models.OrderStatus
	TableID *uint
	From    *time.Time // dahil
	To      *time.Time // hariç
	Limit   int
}

type Service struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewService(db *gorm.DB, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{DB: db, Events: pub}
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for i, it := range items {
		switch {
		case it.ProductID == 0:
			return &ItemError{Index: i, Reason: "productId zorunlu"}
		case it.Quantity <= 0:
			return &ItemError{Index: i, Reason: "miktar 0'dan büyük olmalı"}
		case it.Price.IsNegative():
			return &ItemError{Index: i, Reason: "fiyat negatif olamaz"}
		}
	}
	return nil
}

// Create: Sipariş ve satırları tek yazımda oluşturur. Durum "paid" ise stok aynı transaction'da düşülür.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.OrderPending
	}
	if !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	order := models.Order{
		EstablishmentID: in.EstablishmentID,
		TableID:         in.TableID,
		Source:          in.Source,
		Status:          in.Status,
	}
	if in.Customer != nil {
		order.Customer = *in.Customer
	}
	if in.ClientRef != "" {
		if existing, err := s.findByClientRef(ctx, in.EstablishmentID, in.ClientRef); err != nil || existing != nil {
			return existing, err
		}
		ref := in.ClientRef
		order.ClientRef = &ref
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var est models.Establishment
		if err := tx.Select("id").First(&est, in.EstablishmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEstablishmentNotFound
			}
			return err
		}

		if in.TableID != nil {
			var count int64
			if err := tx.Model(&models.Table{}).
				Where("id = ? AND establishment_id = ?", *in.TableID, in.EstablishmentID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrTableNotFound
			}
		}

		// Bütün ürünler aynı işletmeye ait olmalı; başka işletmenin ürünüyle sipariş açılamaz
		ids := make([]uint, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}
		var products []models.Product
		if err := tx.Where("id IN ? AND establishment_id = ?", ids, in.EstablishmentID).
			Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		total := decimal.Zero
		lines := make([]inventory.StockLine, 0, len(in.Items))
		for _, it := range in.Items {
			if _, ok := byID[it.ProductID]; !ok {
				return ErrProductNotFound
			}
			price := it.Price.Round(2)
			lineTotal := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			total = total.Add(lineTotal)

			order.Items = append(order.Items, models.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     price,
				Total:     lineTotal,
			})
			lines = append(lines, inventory.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		order.TotalAmount = total

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if order.Status == models.OrderPaid {
			if err := inventory.DeductForOrder(tx, in.EstablishmentID, lines); err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			EstablishmentID: in.EstablishmentID,
			UserID:          in.UserID,
			EntityType:      "order",
			EntityID:        order.ID,
			Action:          models.AuditActionCreate,
			Description:     fmt.Sprintf("Sipariş oluşturuldu (%s, %s): %s", order.Source, order.Status, total.StringFixed(2)),
			After:           snapshot(&order),
		})
	})
	// Aynı referansla eşzamanlı gelen ikinci istek unique index'e takılır
	if errors.Is(err, gorm.ErrDuplicatedKey) && order.ClientRef != nil {
		existing, findErr := s.findByClientRef(ctx, in.EstablishmentID, *order.ClientRef)
		if findErr == nil && existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}

	events.PublishAsync(s.Events, events.Event{
		Type:            events.OrderCreated,
		EstablishmentID: order.EstablishmentID,
		OrderID:         order.ID,
		Status:          string(order.Status),
	})

	return s.Get(ctx, order.EstablishmentID, order.ID)
}

// findByClientRef: Kayıt yoksa (nil, nil)
func (s *Service) findByClientRef(ctx context.Context, establishmentID uint, ref string) (*models.Order, error) {
	var o models.Order
	err := s.DB.WithContext(ctx).Select("id").
		Where("establishment_id = ? AND client_ref = ?", establishmentID, ref).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, establishmentID, o.ID)
}

// UpdateStatus: Durum geçişini tek transaction'da uygular. "paid"e ilk geçişte stok düşülür;
// stok yetmezse hiçbir ürün düşülmez ve durum değişmez. Zaten ödenmiş siparişe tekrar "paid" no-op'tur.
func (s *Service) UpdateStatus(ctx context.Context, establishmentID, orderID uint, to models.OrderStatus, userID *uint) (*models.Order, models.OrderStatus, error) {
	if !to.Valid() {
		return nil, "", ErrInvalidStatus
	}

	var from models.OrderStatus
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").
			Where("id = ? AND establishment_id = ?", orderID, establishmentID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		from = order.Status

		if !CanTransition(from, to) {
			return &TransitionError{From: from, To: to}
		}
		if from == to {
			return nil
		}

		if to == models.OrderPaid {
			lines := make([]inventory.StockLine, 0, len(order.Items))
			for _, it := range order.Items {
				lines = append(lines, inventory.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
			}
			if err := inventory.DeductForOrder(tx, establishmentID, lines); err != nil {
				return err
			}
		}

		// Okunan durum hâlâ geçerliyse yaz; araya giren istek varsa stok düşümü de geri alınır
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Updates(map[string]any{"status": to, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		before := snapshot(&order)
		order.Status = to
		return audit.WriteLog(tx, audit.LogOptions{
			EstablishmentID: establishmentID,
			UserID:          userID,
			EntityType:      "order",
			EntityID:        order.ID,
			Action:          models.AuditActionStatusChange,
			Description:     fmt.Sprintf("Sipariş #%d durumu: %s -> %s", order.ID, from, to),
			Before:          before,
			After:           snapshot(&order),
		})
	})
	if err != nil {
		return nil, "", err
	}

	if from != to {
		events.PublishAsync(s.Events, events.Event{
			Type:            events.OrderStatusChanged,
			EstablishmentID: establishmentID,
			OrderID:         orderID,
			Status:          string(to),
		})
	}

	order, err := s.Get(ctx, establishmentID, orderID)
	if err != nil {
		return nil, "", err
	}
	return order, from, nil
}

// Delete: Sadece pending/completed silinir. Stok hiç düşülmediği için geri eklenecek bir şey yok.
func (s *Service) Delete(ctx context.Context, establishmentID, orderID uint, userID *uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").
			Where("id = ? AND establishment_id = ?", orderID, establishmentID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status == models.OrderPaid || order.Status == models.OrderCancelled {
			return ErrTerminalState
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", order.ID, order.Status).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		return audit.WriteLog(tx, audit.LogOptions{
			EstablishmentID: establishmentID,
			UserID:          userID,
			EntityType:      "order",
			EntityID:        order.ID,
			Action:          models.AuditActionDelete,
			Description:     fmt.Sprintf("Sipariş #%d silindi (%s)", order.ID, order.Status),
			Before:          snapshot(&order),
		})
	})
	if err != nil {
		return err
	}

	events.PublishAsync(s.Events, events.Event{
		Type:            events.OrderDeleted,
		EstablishmentID: establishmentID,
		OrderID:         orderID,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, establishmentID, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).
		Preload("Table").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Where("id = ? AND establishment_id = ?", orderID, establishmentID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) List(ctx context.Context, establishmentID uint, f Filter) ([]models.Order, error) {
	dbq := s.DB.WithContext(ctx).
		Preload("Table").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Where("establishment_id = ?", establishmentID)

	if f.Status != "" {
		dbq = dbq.Where("status = ?", f.Status)
	}
	if f.TableID != nil {
		dbq = dbq.Where("table_id = ?", *f.TableID)
	}
	if f.From != nil {
		dbq = dbq.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("created_at < ?", *f.To)
	}
	if f.Limit > 0 {
		dbq = dbq.Limit(f.Limit)
	}

	var list []models.Order
	if err := dbq.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

type itemSnapshot struct {
	ProductID uint   `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Total     string `json:"total"`
}

type orderSnapshot struct {
	Status      models.OrderStatus `json:"status"`
	Source      models.OrderSource `json:"source"`
	TableID     *uint              `json:"tableId"`
	TotalAmount string             `json:"totalAmount"`
	Items       []itemSnapshot     `json:"items"`
}

// snapshot: Audit log için sade görünüm
func snapshot(o *models.Order) orderSnapshot {
	s := orderSnapshot{
		Status:      o.Status,
		Source:      o.Source,
		TableID:     o.TableID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Items:       make([]itemSnapshot, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		s.Items = append(s.Items, itemSnapshot{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
			Total:     it.Total.StringFixed(2),
		})
	}
	return s
}
