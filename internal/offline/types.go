package offline

import (
	"time"

	"restopos-backend/internal/models"

	"github.com/shopspring/decimal"
)

type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusError   SyncStatus = "error"

	// StatusRejected: Sunucu kalıcı olarak reddetti (4xx); elle Retry veya Drop beklenir
	StatusRejected SyncStatus = "rejected"
)

const (
	// LeaseTTL: Çöken bir flush'ın bıraktığı kilit bu süreden sonra geçersiz
	LeaseTTL = 2 * time.Minute
	// StuckAfter: Bu süreden uzun "syncing" kalan sipariş tekrar denenir
	StuckAfter = 60 * time.Second
)

type Item struct {
	ProductID uint            `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order: Kuyruktaki sipariş. Items oluşturma anındaki tam kopyadır.
type Order struct {
	LocalID       string             `json:"localId"`
	TableID       *uint              `json:"tableId,omitempty"`
	Status        models.OrderStatus `json:"status"` // sunucuda açılacak durum: completed | paid
	Items         []Item             `json:"items"`
	SyncStatus    SyncStatus         `json:"syncStatus"`
	SyncStartedAt *time.Time         `json:"syncStartedAt,omitempty"`
	Attempts      int                `json:"attempts"`
	LastError     string             `json:"lastError,omitempty"`
	ServerID      uint               `json:"serverId,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	SyncedAt      *time.Time         `json:"syncedAt,omitempty"`
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Product: Sunucudaki ürünün yerel gölgesi; Quantity iyimser olarak düşülür
type Product struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	IsQuantifiable bool            `json:"isQuantifiable"`
	Quantity       *int            `json:"quantity"`
}

// Draft: Henüz kuyruğa alınmamış, kasada hazırlanan sipariş
type Draft struct {
	ID        string    `json:"id"`
	TableID   *uint     `json:"tableId,omitempty"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lease: Tek seferde tek flush; timestamp'ten LeaseTTL sonra kendiliğinden düşer.
// Owner, kilidi alan flush'ı tanımlar; başkasının devraldığı kilit bırakılmaz.
type Lease struct {
	Locked    bool      `json:"locked"`
	Timestamp time.Time `json:"timestamp"`
	Owner     string    `json:"owner"`
}

type FlushResult struct {
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
	Recovered int `json:"recovered"`
}
