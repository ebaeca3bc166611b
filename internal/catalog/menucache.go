package catalog

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// MenuCache: Public menünün hazır JSON'u, slug başına
type MenuCache interface {
	Get(ctx context.Context, slug string) ([]byte, bool, error)
	Set(ctx context.Context, slug string, body []byte) error
	Invalidate(ctx context.Context, slug string) error
}

type RedisMenuCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisMenuCache(client *redis.Client, ttl time.Duration) *RedisMenuCache {
	return &RedisMenuCache{Client: client, TTL: ttl}
}

func (c *RedisMenuCache) key(slug string) string {
	return "menu:" + slug
}

func (c *RedisMenuCache) Get(ctx context.Context, slug string) ([]byte, bool, error) {
	b, err := c.Client.Get(ctx, c.key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisMenuCache) Set(ctx context.Context, slug string, body []byte) error {
	return c.Client.Set(ctx, c.key(slug), body, c.TTL).Err()
}

func (c *RedisMenuCache) Invalidate(ctx context.Context, slug string) error {
	return c.Client.Del(ctx, c.key(slug)).Err()
}

// NopMenuCache: Redis tanımlı değilse her istek veritabanından okunur
type NopMenuCache struct{}

func (NopMenuCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopMenuCache) Set(context.Context, string, []byte) error        { return nil }
func (NopMenuCache) Invalidate(context.Context, string) error         { return nil }

// Invalidator: Başka paketlerin (işletme, stok, sipariş) menüyü geçersiz kılması için
func Invalidator(cache MenuCache) func(slug string) {
	return func(slug string) {
		if cache == nil || slug == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.Invalidate(ctx, slug); err != nil {
			log.Printf("[WARN] menü cache silinemedi (%s): %v", slug, err)
		}
	}
}
