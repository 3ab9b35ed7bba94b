package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Bot      BotConfig
	JWT      JWTConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Limits   LimitsConfig
}

type ServerConfig struct {
	AppEnv     string
	HTTPAddr   string
	CORSOrigin string
}

type LoggerConfig struct {
	Level  string
	Format string
}

// StoreConfig describes the managed backend (REST tables + object storage).
type StoreConfig struct {
	URL               string
	APIKey            string
	Bucket            string
	ClientsTable      string
	ProductsTable     string
	PlansTable        string
	BotsTable         string
	UsersTable        string
	DefaultCampaignID string
	RequestTimeout    time.Duration
	CountTimeout      time.Duration
}

type BotConfig struct {
	Mode         string // "webhook" or "local"
	WebhookURL   string
	PollInterval time.Duration
	DevicesDir   string
	QRPerMinute  float64
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// PostgresConfig is optional: when URL is empty the REST store is used.
type PostgresConfig struct {
	URL         string
	AutoMigrate bool
}

// RedisConfig is optional: when Addr is empty sessions stay in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type LimitsConfig struct {
	RatePerSecond float64
	Burst         int
	MaxBodyBytes  int64
}

const (
	BotModeWebhook = "webhook"
	BotModeLocal   = "local"
)

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:     getEnv("APP_ENV", "dev"),
			HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
			CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Store: StoreConfig{
			URL:               strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			APIKey:            getEnv("SUPABASE_ANON_KEY", ""),
			Bucket:            getEnv("STORAGE_BUCKET", "disparador"),
			ClientsTable:      getEnv("CLIENTS_TABLE", "lalunna_clientes"),
			ProductsTable:     getEnv("PRODUCTS_TABLE", "lalunna_produtos"),
			PlansTable:        getEnv("PLANS_TABLE", "ger_clientes_praise"),
			BotsTable:         getEnv("BOTS_TABLE", "bots"),
			UsersTable:        getEnv("USERS_TABLE", "users"),
			DefaultCampaignID: getEnv("DEFAULT_CAMPAIGN_ID", "35466767643567"),
			RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
			CountTimeout:      getEnvDuration("COUNT_TIMEOUT", 15*time.Second),
		},
		Bot: BotConfig{
			Mode:         getEnv("BOT_MODE", BotModeWebhook),
			WebhookURL:   getEnv("QR_WEBHOOK_URL", "https://praisewhk.praisesistemas.uk/webhook/lalunna/qrcode-updated"),
			PollInterval: getEnvDuration("BOT_POLL_INTERVAL", 5*time.Second),
			DevicesDir:   getEnv("WHATSAPP_DEVICES_DIR", "devices"),
			QRPerMinute:  getEnvFloat("QR_REQUESTS_PER_MINUTE", 2),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Postgres: PostgresConfig{
			URL:         getEnv("DATABASE_URL", ""),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Limits: LimitsConfig{
			RatePerSecond: getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:         getEnvInt("RATE_LIMIT_BURST", 10),
			MaxBodyBytes:  int64(getEnvInt("MAX_BODY_BYTES", 10<<20)),
		},
	}
}

// Validate rejects settings that must be explicit outside development.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return errors.New("SUPABASE_URL is required")
	}
	if c.JWT.Secret == "" && !c.Server.IsDev() {
		return errors.New("JWT_SECRET is required when APP_ENV is not dev")
	}
	return nil
}

func (s ServerConfig) IsDev() bool {
	return s.AppEnv == "dev"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15s") or plain milliseconds ("15000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
