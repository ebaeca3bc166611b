package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"restopos-backend/internal/models"

	"github.com/google/uuid"
)

const (
	keyOrders   = "orders"
	keyProducts = "products"
	keyDrafts   = "drafts"
	keyLease    = "sync_lock"
)

var (
	ErrSyncInProgress   = errors.New("senkronizasyon zaten çalışıyor")
	ErrDraftNotFound    = errors.New("taslak sipariş bulunamadı")
	ErrProductNotCached = errors.New("ürün yerel listede yok")
	ErrEmptyDraft       = errors.New("taslak sipariş boş")
	ErrInvalidStatus    = errors.New("çevrimdışı sipariş durumu completed veya paid olmalı")
	ErrInvalidQuantity  = errors.New("miktar 0'dan büyük olmalı")
	ErrOrderNotFound    = errors.New("kuyrukta sipariş bulunamadı")
	ErrNotRejected      = errors.New("sadece reddedilmiş siparişler için geçerli")
)

// LocalStockError: Yerel gölge stok yetersiz. Sunucu tarafını bağlamaz, sadece uyarıdır.
type LocalStockError struct {
	ProductID uint
	Name      string
	Available int
	Requested int
}

func (e *LocalStockError) Error() string {
	return fmt.Sprintf("yerel stok yetersiz: %s (mevcut: %d, istenen: %d)", e.Name, e.Available, e.Requested)
}

// Submitter: Kuyruktaki siparişi sunucuya iletir, ürün listesini çeker
type Submitter interface {
	SubmitOrder(ctx context.Context, o Order) (serverID uint, err error)
	FetchProducts(ctx context.Context) ([]Product, error)
}

// Cache: Bağlantı yokken siparişleri kuyrukta tutar, bağlantı gelince gönderir.
// Kilit (Lease) sadece aynı cihazdaki üst üste binen flush'ları engeller;
// aynı hesabı kullanan iki cihaz aynı siparişi iki kez kuyruğa alırsa bu engellenmez.
type Cache struct {
	store     Store
	submitter Submitter
	now       func() time.Time
	newID     func() string
	logger    *log.Logger

	// Store'daki oku-değiştir-yaz adımlarını süreç içinde sıraya koyar
	mu sync.Mutex
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func NewCache(store Store, submitter Submitter, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		submitter: submitter,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    log.New(os.Stderr, "[offline] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func loadJSON[T any](ctx context.Context, s Store, key string, out *T) error {
	b, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func saveJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, b)
}

func (c *Cache) loadOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := loadJSON(ctx, c.store, keyOrders, &orders)
	return orders, err
}

func (c *Cache) loadDrafts(ctx context.Context) (map[string]Draft, error) {
	drafts := map[string]Draft{}
	err := loadJSON(ctx, c.store, keyDrafts, &drafts)
	return drafts, err
}

func (c *Cache) loadProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := loadJSON(ctx, c.store, keyProducts, &products)
	return products, err
}

func findProduct(products []Product, id uint) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// adjustShadow: delta negatifse düşer, pozitifse iade eder. Stok takipsiz ürünlerde no-op.
func adjustShadow(p *Product, delta int) {
	if !p.IsQuantifiable {
		return
	}
	q := 0
	if p.Quantity != nil {
		q = *p.Quantity
	}
	q += delta
	p.Quantity = &q
}

// Products: Yerel gölge ürün listesi
func (c *Cache) Products(ctx context.Context) ([]Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadProducts(ctx)
}

// ReplaceProducts: Sunucudan gelen liste gölgenin yerine geçer. Açık taslaklar ve henüz
// gönderilmemiş siparişler yerel rezervasyon olarak tekrar düşülür.
func (c *Cache) ReplaceProducts(ctx context.Context, products []Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return err
	}
	orders, err := c.loadOrders(ctx)
	if err != nil {
		return err
	}

	held := map[uint]int{}
	for _, d := range drafts {
		for _, it := range d.Items {
			held[it.ProductID] += it.Quantity
		}
	}
	for _, o := range orders {
		if o.SyncStatus == StatusSynced {
			continue
		}
		for _, it := range o.Items {
			held[it.ProductID] += it.Quantity
		}
	}

	out := make([]Product, len(products))
	copy(out, products)
	for i := range out {
		if n := held[out[i].ID]; n > 0 && out[i].IsQuantifiable {
			adjustShadow(&out[i], -n)
			if *out[i].Quantity < 0 {
				zero := 0
				out[i].Quantity = &zero
			}
		}
	}
	return saveJSON(ctx, c.store, keyProducts, out)
}

// Reconcile: Sunucudaki güncel ürünleri çekip gölgeyi yeniler
func (c *Cache) Reconcile(ctx context.Context) error {
	products, err := c.submitter.FetchProducts(ctx)
	if err != nil {
		return err
	}
	return c.ReplaceProducts(ctx, products)
}

func (c *Cache) NewDraft(ctx context.Context, tableID *uint) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return Draft{}, err
	}
	d := Draft{ID: c.newID(), TableID: tableID, Items: []Item{}, CreatedAt: c.now()}
	drafts[d.ID] = d
	return d, saveJSON(ctx, c.store, keyDrafts, drafts)
}

func (c *Cache) Draft(ctx context.Context, draftID string) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return Draft{}, err
	}
	d, ok := drafts[draftID]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

// AddItem: Ürünü taslağa ekler ve gölge stoktan düşer. Fiyat ve ad o anki gölgeden kopyalanır.
func (c *Cache) AddItem(ctx context.Context, draftID string, productID uint, qty int) (Draft, error) {
	if qty <= 0 {
		return Draft{}, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return Draft{}, err
	}
	d, ok := drafts[draftID]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	products, err := c.loadProducts(ctx)
	if err != nil {
		return Draft{}, err
	}
	idx := findProduct(products, productID)
	if idx < 0 {
		return Draft{}, ErrProductNotCached
	}
	p := &products[idx]

	if p.IsQuantifiable {
		available := 0
		if p.Quantity != nil {
			available = *p.Quantity
		}
		if available < qty {
			return Draft{}, &LocalStockError{ProductID: p.ID, Name: p.Name, Available: available, Requested: qty}
		}
	}
	adjustShadow(p, -qty)

	merged := false
	for i := range d.Items {
		if d.Items[i].ProductID == productID {
			d.Items[i].Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		d.Items = append(d.Items, Item{ProductID: p.ID, Name: p.Name, Quantity: qty, Price: p.Price})
	}
	drafts[draftID] = d

	if err := saveJSON(ctx, c.store, keyProducts, products); err != nil {
		return Draft{}, err
	}
	return d, saveJSON(ctx, c.store, keyDrafts, drafts)
}

// RemoveItem: qty <= 0 ise satırın tamamı çıkarılır; çıkan miktar gölgeye iade edilir
func (c *Cache) RemoveItem(ctx context.Context, draftID string, productID uint, qty int) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return Draft{}, err
	}
	d, ok := drafts[draftID]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}

	removed := 0
	items := d.Items[:0]
	for _, it := range d.Items {
		if it.ProductID != productID {
			items = append(items, it)
			continue
		}
		n := it.Quantity
		if qty > 0 && qty < n {
			n = qty
		}
		removed = n
		it.Quantity -= n
		if it.Quantity > 0 {
			items = append(items, it)
		}
	}
	d.Items = items
	drafts[draftID] = d

	if removed > 0 {
		if err := c.restore(ctx, map[uint]int{productID: removed}); err != nil {
			return Draft{}, err
		}
	}
	return d, saveJSON(ctx, c.store, keyDrafts, drafts)
}

// Discard: Taslağı siler, tüm kalemleri gölgeye iade eder
func (c *Cache) Discard(ctx context.Context, draftID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return err
	}
	d, ok := drafts[draftID]
	if !ok {
		return ErrDraftNotFound
	}

	back := map[uint]int{}
	for _, it := range d.Items {
		back[it.ProductID] += it.Quantity
	}
	if err := c.restore(ctx, back); err != nil {
		return err
	}
	delete(drafts, draftID)
	return saveJSON(ctx, c.store, keyDrafts, drafts)
}

// restore: mu tutulurken çağrılır
func (c *Cache) restore(ctx context.Context, back map[uint]int) error {
	products, err := c.loadProducts(ctx)
	if err != nil {
		return err
	}
	for id, n := range back {
		if idx := findProduct(products, id); idx >= 0 {
			adjustShadow(&products[idx], n)
		}
	}
	return saveJSON(ctx, c.store, keyProducts, products)
}

// Enqueue: Taslağı gönderim kuyruğuna alır. Gölgedeki düşüm korunur, sunucu onaylayınca uzlaştırılır.
func (c *Cache) Enqueue(ctx context.Context, draftID string, status models.OrderStatus) (Order, error) {
	if status != models.OrderCompleted && status != models.OrderPaid {
		return Order{}, ErrInvalidStatus
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	drafts, err := c.loadDrafts(ctx)
	if err != nil {
		return Order{}, err
	}
	d, ok := drafts[draftID]
	if !ok {
		return Order{}, ErrDraftNotFound
	}
	if len(d.Items) == 0 {
		return Order{}, ErrEmptyDraft
	}

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return Order{}, err
	}
	o := Order{
		LocalID:    c.newID(),
		TableID:    d.TableID,
		Status:     status,
		Items:      d.Items,
		SyncStatus: StatusPending,
		CreatedAt:  c.now(),
	}
	orders = append(orders, o)
	if err := saveJSON(ctx, c.store, keyOrders, orders); err != nil {
		return Order{}, err
	}

	delete(drafts, draftID)
	return o, saveJSON(ctx, c.store, keyDrafts, drafts)
}

// Orders: Kuyruktaki tüm siparişler, oluşturulma sırasına göre
func (c *Cache) Orders(ctx context.Context) ([]Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

// PurgeSynced: Sunucuya ulaşmış siparişleri kuyruktan siler
func (c *Cache) PurgeSynced(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return 0, err
	}
	kept := orders[:0]
	purged := 0
	for _, o := range orders {
		if o.SyncStatus == StatusSynced {
			purged++
			continue
		}
		kept = append(kept, o)
	}
	if purged == 0 {
		return 0, nil
	}
	return purged, saveJSON(ctx, c.store, keyOrders, kept)
}

// Retry: Reddedilmiş siparişi tekrar gönderim kuyruğuna alır. LocalID değişmez,
// sunucu aynı siparişi ikinci kez oluşturmaz.
func (c *Cache) Retry(ctx context.Context, localID string) (Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return Order{}, err
	}
	i, err := findRejected(orders, localID)
	if err != nil {
		return Order{}, err
	}
	orders[i].SyncStatus = StatusPending
	orders[i].Attempts = 0
	return orders[i], saveJSON(ctx, c.store, keyOrders, orders)
}

// Drop: Reddedilmiş siparişi kuyruktan siler, kalemleri gölgeye iade eder
func (c *Cache) Drop(ctx context.Context, localID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return err
	}
	i, err := findRejected(orders, localID)
	if err != nil {
		return err
	}

	back := map[uint]int{}
	for _, it := range orders[i].Items {
		back[it.ProductID] += it.Quantity
	}
	if err := c.restore(ctx, back); err != nil {
		return err
	}
	orders = append(orders[:i], orders[i+1:]...)
	return saveJSON(ctx, c.store, keyOrders, orders)
}

func findRejected(orders []Order, localID string) (int, error) {
	for i := range orders {
		if orders[i].LocalID != localID {
			continue
		}
		if orders[i].SyncStatus != StatusRejected {
			return -1, ErrNotRejected
		}
		return i, nil
	}
	return -1, ErrOrderNotFound
}
