package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBMaxConns int

	AppPort     string
	AppEnv      string
	AppSecret   string
	FrontendURL string
	LogLevel    string

	CookieSecure bool
	SessionTTL   time.Duration

	StripeSecretKey     string
	StripeBaseURL       string
	StripeWebhookSecret string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	RedisAddr     string
	RedisPassword string

	InternalSecretKey string

	ReconcileEnabled    bool
	ReconcileInterval   time.Duration
	ReconcileTimeout    time.Duration
	ReconcileStaleAfter time.Duration
}

// Load reads the environment (and a .env file when present) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBMaxConns: getenvInt("DB_MAX_CONNS", 10),

		AppPort:     getenv("APP_PORT", "4444"),
		AppEnv:      getenv("APP_ENV", "development"),
		AppSecret:   os.Getenv("APP_SECRET"),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:7777"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		CookieSecure: getenvBool("COOKIE_SECURE", false),
		SessionTTL:   getenvDuration("SESSION_TTL", 365*24*time.Hour),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET"),
		StripeBaseURL:       getenv("STRIPE_BASE_URL", "https://api.stripe.com"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		SMTPHost:     os.Getenv("MAIL_HOST"),
		SMTPPort:     getenv("MAIL_PORT", "587"),
		SMTPUser:     os.Getenv("MAIL_USER"),
		SMTPPassword: os.Getenv("MAIL_PASS"),
		MailFrom:     getenv("MAIL_FROM", "shop@sickfits.local"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),

		ReconcileEnabled:    getenvBool("RECONCILE_ENABLED", true),
		ReconcileInterval:   getenvDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileTimeout:    getenvDuration("RECONCILE_TIMEOUT", 30*time.Second),
		ReconcileStaleAfter: getenvDuration("RECONCILE_STALE_AFTER", 10*time.Minute),
	}

	if cfg.DBHost == "" {
		return nil, errors.New("DB_HOST is not set")
	}
	if cfg.AppSecret == "" {
		return nil, errors.New("APP_SECRET is not set")
	}

	return cfg, nil
}

// LoadConfig is Load for entrypoints: a broken environment is fatal.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Environment variables not loaded properly: %v", err)
	}
	return cfg
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
