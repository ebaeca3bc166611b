package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=restopos port=5432 sslmode=disable"

type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	SessionCookieName string
	SessionTTL        time.Duration
	CookieSecure      bool
	CORSOrigins       string
	PublicBaseURL     string // QR kodlarına gömülen menü adresi

	RedisAddr    string // boşsa menü önbelleği kapalı
	MenuCacheTTL time.Duration

	KafkaBrokers []string // boşsa event yayınlanmaz
	KafkaTopic   string
}

func Load() *Config {
	// .env opsiyonel; yoksa sadece ortam değişkenleri kullanılır
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env okunamadı: %v", err)
	}

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session"),
		SessionTTL:        getDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:      getEnv("COOKIE_SECURE", "false") == "true",
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		PublicBaseURL:     strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		MenuCacheTTL:      getDuration("MENU_CACHE_TTL", 5*time.Minute),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "restopos.events"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için kendi Postgres bağlantını tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor.")
	}

	return cfg
}

// Validate: Sunucunun güvenle başlayamayacağı eksik ayarları kontrol eder
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET tanımlanmamış")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET en az 32 karakter olmalı")
	}
	if c.SessionCookieName == "" {
		return errors.New("SESSION_COOKIE_NAME boş olamaz")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL pozitif olmalı")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration: "90s", "24h" gibi süreleri veya düz saniye değerini kabul eder
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[WARN] %s geçersiz (%q), varsayılan kullanılıyor: %s", key, v, def)
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
