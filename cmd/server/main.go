package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restopos-backend/internal/catalog"
	"restopos-backend/internal/config"
	"restopos-backend/internal/database"
	"restopos-backend/internal/events"
	"restopos-backend/internal/server"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	log.Println("Veritabanı bağlantısı başarılı.")

	deps := server.Deps{Config: cfg, DB: db}

	// Redis opsiyonel; ulaşılamazsa menü önbelleksiz servis edilir
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Printf("[WARN] Redis'e ulaşılamadı (%s), menü önbelleği kapalı: %v", cfg.RedisAddr, err)
			_ = client.Close()
		} else {
			deps.MenuCache = catalog.NewRedisMenuCache(client, cfg.MenuCacheTTL)
			defer client.Close()
		}
	}

	var pub *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		deps.Events = pub
	}

	app := server.New(deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Sunucu kapatılıyor...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[ERROR] kapatma hatası: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Printf("[ERROR] %v", err)
	}

	// Yolda kalan event'ler writer kapanmadan gönderilsin
	if !events.Drain(5 * time.Second) {
		log.Println("[WARN] bekleyen event yayınları zaman aşımına uğradı")
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			log.Printf("[ERROR] kafka writer kapatılamadı: %v", err)
		}
	}
}
