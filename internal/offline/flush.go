package offline

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Flush: Kuyruktaki pending siparişleri sırayla gönderir.
// Aynı anda ikinci bir flush ErrSyncInProgress alır; bir sipariş hatası diğerlerini durdurmaz.
func (c *Cache) Flush(ctx context.Context) (FlushResult, error) {
	var res FlushResult

	owner, err := c.acquireLease(ctx)
	if err != nil {
		return res, err
	}
	defer c.releaseLease(owner)

	recovered, err := c.recoverOrders(ctx)
	if err != nil {
		return res, err
	}
	res.Recovered = recovered

	ids, err := c.pendingIDs(ctx)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		order, ok, err := c.claim(ctx, id)
		if err != nil {
			return res, err
		}
		if !ok {
			continue
		}

		serverID, subErr := c.submitter.SubmitOrder(ctx, order)
		if err := c.finish(ctx, id, serverID, subErr); err != nil {
			return res, err
		}
		if subErr != nil && isPermanent(subErr) {
			c.logger.Printf("[ERROR] sipariş sunucu tarafından reddedildi, elle müdahale gerekli (%s): %v", id, subErr)
			res.Rejected++
			continue
		}
		if subErr != nil {
			c.logger.Printf("[WARN] sipariş gönderilemedi (%s): %v", id, subErr)
			res.Failed++
			continue
		}
		res.Synced++
	}

	return res, nil
}

// acquireLease: Kilidi alır ve sahiplik anahtarını döner
func (c *Cache) acquireLease(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lease Lease
	if err := loadJSON(ctx, c.store, keyLease, &lease); err != nil {
		return "", err
	}
	now := c.now()
	if lease.Locked && now.Sub(lease.Timestamp) < LeaseTTL {
		return "", ErrSyncInProgress
	}
	if lease.Locked {
		c.logger.Printf("[WARN] süresi dolmuş senkronizasyon kilidi devralınıyor (%s)", lease.Timestamp.Format(time.RFC3339))
	}
	owner := c.newID()
	if err := saveJSON(ctx, c.store, keyLease, Lease{Locked: true, Timestamp: now, Owner: owner}); err != nil {
		return "", err
	}
	return owner, nil
}

// releaseLease: Kilit hâlâ bu flush'a aitse siler. İptal edilmiş ctx ile de çalışmalı.
func (c *Cache) releaseLease(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	var lease Lease
	if err := loadJSON(ctx, c.store, keyLease, &lease); err != nil {
		c.logger.Printf("[ERROR] senkronizasyon kilidi okunamadı: %v", err)
		return
	}
	if !lease.Locked {
		return
	}
	if lease.Owner != owner {
		c.logger.Printf("[WARN] senkronizasyon kilidi başka bir flush tarafından devralınmış, bırakılmadı")
		return
	}
	if err := c.store.Delete(ctx, keyLease); err != nil {
		c.logger.Printf("[ERROR] senkronizasyon kilidi bırakılamadı: %v", err)
	}
}

// isPermanent: Sunucu isteği reddettiyse aynı içerikle tekrar denemek sonuç vermez.
// Oturum (401), zaman aşımı (408) ve hız sınırı (429) geçicidir.
func isPermanent(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	switch remote.Status {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return remote.Status >= 400 && remote.Status < 500
}

// recoverOrders: error durumundakiler ve StuckAfter'dan uzun syncing kalanlar pending'e döner.
// rejected siparişlere dokunulmaz.
func (c *Cache) recoverOrders(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return 0, err
	}
	now := c.now()
	n := 0
	for i := range orders {
		o := &orders[i]
		switch {
		case o.SyncStatus == StatusError:
		case o.SyncStatus == StatusSyncing && (o.SyncStartedAt == nil || now.Sub(*o.SyncStartedAt) > StuckAfter):
		default:
			continue
		}
		o.SyncStatus = StatusPending
		o.SyncStartedAt = nil
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n, saveJSON(ctx, c.store, keyOrders, orders)
}

func (c *Cache) pendingIDs(ctx context.Context) ([]string, error) {
	orders, err := c.Orders(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, o := range orders {
		if o.SyncStatus == StatusPending {
			ids = append(ids, o.LocalID)
		}
	}
	return ids, nil
}

// claim: Siparişi tekrar okur, hâlâ pending ise syncing olarak işaretler
func (c *Cache) claim(ctx context.Context, localID string) (Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return Order{}, false, err
	}
	for i := range orders {
		if orders[i].LocalID != localID {
			continue
		}
		if orders[i].SyncStatus != StatusPending {
			return Order{}, false, nil
		}
		now := c.now()
		orders[i].SyncStatus = StatusSyncing
		orders[i].SyncStartedAt = &now
		if err := saveJSON(ctx, c.store, keyOrders, orders); err != nil {
			return Order{}, false, err
		}
		return orders[i], true, nil
	}
	return Order{}, false, nil
}

func (c *Cache) finish(ctx context.Context, localID string, serverID uint, subErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Gönderim sırasında ctx iptal edilmiş olabilir; sonuç yine de yazılmalı
	ctx = context.WithoutCancel(ctx)

	orders, err := c.loadOrders(ctx)
	if err != nil {
		return err
	}
	for i := range orders {
		o := &orders[i]
		if o.LocalID != localID {
			continue
		}
		o.SyncStartedAt = nil
		if subErr != nil {
			o.SyncStatus = StatusError
			if isPermanent(subErr) {
				o.SyncStatus = StatusRejected
			}
			o.Attempts++
			o.LastError = subErr.Error()
		} else {
			now := c.now()
			o.SyncStatus = StatusSynced
			o.ServerID = serverID
			o.LastError = ""
			o.SyncedAt = &now
		}
		return saveJSON(ctx, c.store, keyOrders, orders)
	}
	return nil
}
