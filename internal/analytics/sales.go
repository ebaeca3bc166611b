package analytics

import (
	"sort"
	"time"

	"restopos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

func (p Period) defaultCount() int {
	switch p {
	case Weekly:
		return 8
	case Monthly:
		return 12
	}
	return 7
}

type SalesPoint struct {
	Label  string  `json:"label"` // gün / hafta başlangıcı (pazartesi) / ay başlangıcı
	Table  float64 `json:"table"`
	Public float64 `json:"public"`
	Manual float64 `json:"manual"`
	Total  float64 `json:"total"`
	Orders int     `json:"orders"`
}

type SalesTotals struct {
	Table  float64 `json:"table"`
	Public float64 `json:"public"`
	Manual float64 `json:"manual"`
	Total  float64 `json:"total"`
	Orders int     `json:"orders"`
}

type SalesChart struct {
	Period      Period       `json:"period"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []SalesPoint `json:"points"`
	GrandTotals SalesTotals  `json:"grandTotals"`
}

// bucketStart: t'nin düştüğü dilimin başlangıcı
func bucketStart(p Period, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch p {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7 // pazartesi = 0
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

func nextBucket(p Period, t time.Time) time.Time {
	switch p {
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// Window: Son `count` dilim, içinde bulunulan dilim dahil. end hariçtir.
func Window(p Period, count int, now time.Time) (start, end time.Time) {
	current := bucketStart(p, now)
	end = nextBucket(p, current)
	switch p {
	case Weekly:
		start = current.AddDate(0, 0, -7*(count-1))
	case Monthly:
		start = current.AddDate(0, -(count - 1), 0)
	default:
		start = current.AddDate(0, 0, -(count - 1))
	}
	return start, end
}

// Sales: Ödenmiş siparişlerin cirosu, kaynağa göre (masa / public / manuel) ayrılmış.
// Gruplama Go tarafında yapılır; veritabanına özgü date_trunc gerekmez.
func Sales(db *gorm.DB, establishmentID uint, p Period, count int, now time.Time) (*SalesChart, error) {
	if count <= 0 {
		count = p.defaultCount()
	}
	start, end := Window(p, count, now)

	var orders []models.Order
	if err := db.Select("id", "source", "total_amount", "created_at").
		Where("establishment_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			establishmentID, models.OrderPaid, start, end).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	type agg struct {
		table, public, manual decimal.Decimal
		orders                int
	}
	buckets := make(map[time.Time]*agg, count)
	for b := start; b.Before(end); b = nextBucket(p, b) {
		buckets[b] = &agg{}
	}

	for _, o := range orders {
		b, ok := buckets[bucketStart(p, o.CreatedAt.In(now.Location()))]
		if !ok {
			continue
		}
		switch o.Source {
		case models.SourceTable:
			b.table = b.table.Add(o.TotalAmount)
		case models.SourcePublic:
			b.public = b.public.Add(o.TotalAmount)
		default:
			b.manual = b.manual.Add(o.TotalAmount)
		}
		b.orders++
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	chart := &SalesChart{
		Period: p,
		From:   start.Format("2006-01-02"),
		To:     end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points: make([]SalesPoint, 0, len(keys)),
	}
	var gTable, gPublic, gManual decimal.Decimal
	for _, k := range keys {
		b := buckets[k]
		total := b.table.Add(b.public).Add(b.manual)
		chart.Points = append(chart.Points, SalesPoint{
			Label:  k.Format("2006-01-02"),
			Table:  b.table.InexactFloat64(),
			Public: b.public.InexactFloat64(),
			Manual: b.manual.InexactFloat64(),
			Total:  total.InexactFloat64(),
			Orders: b.orders,
		})
		gTable = gTable.Add(b.table)
		gPublic = gPublic.Add(b.public)
		gManual = gManual.Add(b.manual)
		chart.GrandTotals.Orders += b.orders
	}
	chart.GrandTotals.Table = gTable.InexactFloat64()
	chart.GrandTotals.Public = gPublic.InexactFloat64()
	chart.GrandTotals.Manual = gManual.InexactFloat64()
	chart.GrandTotals.Total = gTable.Add(gPublic).Add(gManual).InexactFloat64()
	return chart, nil
}
