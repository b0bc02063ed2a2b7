package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	DatabasePath string
	PublicURL    string

	TelegramToken string

	PriceProvider string // "coingecko" или "binance"
	CoinGeckoURL  string

	CryptomusMerchantID string
	CryptomusPaymentKey string
	CoinbaseAPIKey      string
	CoinbaseWebhookKey  string

	JWTSecret         string
	AdminPasswordHash string

	MetricsUser     string
	MetricsPassword string

	AlertInterval time.Duration
	HTTPTimeout   time.Duration
}

// Load читает конфигурацию из окружения. Обязательные значения
// проверяются здесь, чтобы процесс не начал обслуживать трафик без них.
func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		DatabasePath: getEnv("DATABASE_PATH", "pricepulse.db"),
		PublicURL:    os.Getenv("PUBLIC_URL"),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),

		PriceProvider: getEnv("PRICE_PROVIDER", "coingecko"),
		CoinGeckoURL:  getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),

		CryptomusMerchantID: os.Getenv("CRYPTOMUS_MERCHANT_ID"),
		CryptomusPaymentKey: os.Getenv("CRYPTOMUS_PAYMENT_KEY"),
		CoinbaseAPIKey:      os.Getenv("COINBASE_API_KEY"),
		CoinbaseWebhookKey:  os.Getenv("COINBASE_WEBHOOK_SECRET"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		MetricsUser:     getEnv("METRICS_USER", "metrics"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),

		AlertInterval: getDuration("ALERT_INTERVAL", 5*time.Minute),
		HTTPTimeout:   getDuration("HTTP_TIMEOUT", 10*time.Second),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
