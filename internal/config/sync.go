package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SyncConfig: Kasa cihazındaki çevrimdışı senkronizasyon ajanı (cmd/possync) için
type SyncConfig struct {
	ServerURL         string
	Email             string
	Password          string
	SessionCookieName string
	RedisAddr         string // boşsa kuyruk sadece bellekte tutulur
	KeyPrefix         string
	ListenAddr        string // kasa arayüzünün bağlandığı yerel API; boşsa kapalı
	ProbeInterval     time.Duration
	RequestTimeout    time.Duration
}

func LoadSync() *SyncConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env okunamadı: %v", err)
	}

	cfg := &SyncConfig{
		ServerURL:         strings.TrimRight(getEnv("POSSYNC_SERVER_URL", "http://localhost:8080"), "/"),
		Email:             getEnv("POSSYNC_EMAIL", ""),
		Password:          getEnv("POSSYNC_PASSWORD", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session"),
		RedisAddr:         getEnv("POSSYNC_REDIS_ADDR", ""),
		KeyPrefix:         getEnv("POSSYNC_KEY_PREFIX", "possync:"),
		ListenAddr:        getEnv("POSSYNC_LISTEN_ADDR", "127.0.0.1:8090"),
		ProbeInterval:     getDuration("POSSYNC_PROBE_INTERVAL", 15*time.Second),
		RequestTimeout:    getDuration("POSSYNC_REQUEST_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if cfg.RedisAddr == "" {
		log.Println("[WARN] POSSYNC_REDIS_ADDR tanımlı değil, kuyruk yeniden başlatmada kaybolur.")
	}
	return cfg
}

func (c *SyncConfig) Validate() error {
	if c.ServerURL == "" {
		return errors.New("POSSYNC_SERVER_URL tanımlanmamış")
	}
	if c.Email == "" || c.Password == "" {
		return errors.New("POSSYNC_EMAIL ve POSSYNC_PASSWORD zorunlu")
	}
	if c.ProbeInterval <= 0 {
		return errors.New("POSSYNC_PROBE_INTERVAL pozitif olmalı")
	}
	return nil
}
