// possync: Kasa cihazında çalışır, çevrimdışı alınan siparişleri sunucu erişilebilir olunca gönderir
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"restopos-backend/internal/config"
	"restopos-backend/internal/offline"

	"github.com/redis/go-redis/v9"
)

func main() {
	once := flag.Bool("once", false, "tek senkronizasyon yap ve çık")
	flag.Parse()

	cfg := config.LoadSync()
	logger := log.New(os.Stdout, "[possync] ", log.LstdFlags)

	var store offline.Store = offline.NewMemoryStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		store = offline.NewRedisStore(client, cfg.KeyPrefix)
	}

	sub := offline.NewHTTPSubmitter(cfg.ServerURL, cfg.SessionCookieName, cfg.RequestTimeout)
	cache := offline.NewCache(store, sub, offline.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &agent{cache: cache, sub: sub, cfg: cfg, logger: logger}

	if *once {
		if _, err := a.run(ctx); err != nil {
			logger.Fatalf("[FATAL] %v", err)
		}
		return
	}

	if cfg.ListenAddr != "" {
		app := offline.NewLocalApp(cache, a.run)
		go func() {
			logger.Printf("yerel API %s adresinde", cfg.ListenAddr)
			if err := app.Listen(cfg.ListenAddr); err != nil {
				logger.Printf("[ERROR] yerel API: %v", err)
			}
		}()
		defer func() {
			if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
				logger.Printf("[ERROR] yerel API kapatılamadı: %v", err)
			}
		}()
	}

	// Sunucu erişilebilir olduğu sürece her turda kuyruk boşaltılır
	online := false
	ticker := time.NewTicker(cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		reachable := sub.Ping(ctx) == nil
		switch {
		case reachable:
			if !online {
				logger.Println("sunucu erişilebilir, senkronizasyon başlıyor")
			}
			if _, err := a.run(ctx); err != nil && !errors.Is(err, offline.ErrSyncInProgress) {
				logger.Printf("[ERROR] senkronizasyon: %v", err)
			}
		case online:
			logger.Println("[WARN] sunucuya ulaşılamıyor, siparişler kuyrukta bekleyecek")
		}
		online = reachable

		select {
		case <-ctx.Done():
			logger.Println("kapatılıyor")
			return
		case <-ticker.C:
		}
	}
}

// agent: Döngü ve yerel API aynı anda senkronizasyon başlatabilir; mu oturum token'ını da korur
type agent struct {
	cache  *offline.Cache
	sub    *offline.HTTPSubmitter
	cfg    *config.SyncConfig
	logger *log.Logger

	mu sync.Mutex
}

func (a *agent) run(ctx context.Context) (offline.FlushResult, error) {
	if !a.mu.TryLock() {
		return offline.FlushResult{}, offline.ErrSyncInProgress
	}
	defer a.mu.Unlock()

	if a.sub.Token == "" {
		if err := a.sub.Login(ctx, a.cfg.Email, a.cfg.Password); err != nil {
			return offline.FlushResult{}, err
		}
	}

	res, err := a.cache.Flush(ctx)
	if err != nil {
		return res, err
	}
	if res.Synced+res.Failed+res.Rejected+res.Recovered > 0 {
		a.logger.Printf("gönderilen: %d, hatalı: %d, reddedilen: %d, kurtarılan: %d", res.Synced, res.Failed, res.Rejected, res.Recovered)
	}

	if _, err := a.cache.PurgeSynced(ctx); err != nil {
		return res, err
	}

	err = a.cache.Reconcile(ctx)
	// Oturum süresi dolduysa bir sonraki denemede tekrar giriş yapılır
	var remote *offline.RemoteError
	if errors.As(err, &remote) && remote.Status == http.StatusUnauthorized {
		a.sub.Token = ""
	}
	return res, err
}
