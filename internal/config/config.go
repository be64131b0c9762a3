package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // BM_TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Telegram    TelegramConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Audit       AuditConfig
	BlackMarket BlackMarketConfig
	RateLimit   RateLimitConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name            string `envconfig:"APP_NAME" default:"phonemarket-bot"`
	Environment     string `envconfig:"APP_ENV" default:"development"`
	Debug           bool   `envconfig:"APP_DEBUG" default:"false"`
	Version         string `envconfig:"APP_VERSION" default:"1.0.0"`
	StartingBalance int64  `envconfig:"STARTING_BALANCE" default:"1000"`
}

// ServerConfig holds admin HTTP API settings.
type ServerConfig struct {
	Enabled         bool          `envconfig:"ADMIN_HTTP_ENABLED" default:"true"`
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	APIKeys         []string      `envconfig:"ADMIN_API_KEYS"`
}

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	Token       string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	Debug       bool   `envconfig:"TELEGRAM_DEBUG" default:"false"`
	PollTimeout int    `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"60"`
}

// DatabaseConfig holds game database settings.
type DatabaseConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite, postgres, or mysql
	Path     string `envconfig:"DB_PATH" default:"./data/phonemarket.db"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"phonemarket"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// CacheConfig selects where confirmation dialogs live.
type CacheConfig struct {
	Type             string        `envconfig:"SESSION_STORE" default:"memory"` // memory or redis
	SessionRetention time.Duration `envconfig:"SESSION_RETENTION" default:"1h"`
	KeyPrefix        string        `envconfig:"SESSION_KEY_PREFIX" default:"phonemarket:session"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AuditConfig holds purchase audit log settings. An empty URI keeps the log in memory.
type AuditConfig struct {
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"phonemarket"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"bm_purchases"`
	MemoryCapacity  int    `envconfig:"AUDIT_MEMORY_CAPACITY" default:"1000"`
}

// BlackMarketConfig holds offer generation and purchase rules.
type BlackMarketConfig struct {
	TotalSlots             int           `envconfig:"BM_TOTAL_SLOTS" default:"6"`
	ResetHour              int           `envconfig:"BM_RESET_HOUR" default:"0"`
	Timezone               string        `envconfig:"BM_TIMEZONE" default:"Europe/Moscow"`
	Inflation              float64       `envconfig:"BM_INFLATION" default:"1.0"`
	DiscountMin            float64       `envconfig:"BM_DISCOUNT_MIN" default:"0.05"`
	DiscountMax            float64       `envconfig:"BM_DISCOUNT_MAX" default:"0.30"`
	StolenDiscountMin      float64       `envconfig:"BM_STOLEN_DISCOUNT_MIN" default:"0.20"`
	StolenDiscountMax      float64       `envconfig:"BM_STOLEN_DISCOUNT_MAX" default:"0.45"`
	ExclusiveChance        float64       `envconfig:"BM_EXCLUSIVE_CHANCE" default:"0.15"`
	ConfirmTimeout         time.Duration `envconfig:"BM_CONFIRM_TIMEOUT" default:"60s"`
	MaxPhones              int           `envconfig:"BM_MAX_PHONES" default:"2"`
	MaxMonthlyPhones       int           `envconfig:"BM_MAX_MONTHLY_PHONES" default:"3"`
	ComponentDefectChance  float64       `envconfig:"BM_COMPONENT_DEFECT_CHANCE" default:"0.10"`
	UnreliableSellerChance float64       `envconfig:"BM_UNRELIABLE_SELLER_CHANCE" default:"0.10"`
	OfferRetention         time.Duration `envconfig:"BM_OFFER_RETENTION" default:"168h"`
	CleanupInterval        time.Duration `envconfig:"BM_CLEANUP_INTERVAL" default:"1h"`
}

// RateLimitConfig bounds how fast a single user may send updates.
type RateLimitConfig struct {
	PerSecond float64 `envconfig:"BOT_RATE_PER_SEC" default:"3"`
	Burst     int     `envconfig:"BOT_RATE_BURST" default:"5"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Location loads the configured game timezone.
func (b *BlackMarketConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BM_TIMEZONE %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// Validate checks the black market settings for values the generator cannot use.
func (b *BlackMarketConfig) Validate() error {
	if b.TotalSlots < 1 {
		return fmt.Errorf("BM_TOTAL_SLOTS must be at least 1, got %d", b.TotalSlots)
	}
	if b.ResetHour < 0 || b.ResetHour > 23 {
		return fmt.Errorf("BM_RESET_HOUR must be within 0..23, got %d", b.ResetHour)
	}
	if b.Inflation <= 0 {
		return fmt.Errorf("BM_INFLATION must be positive, got %v", b.Inflation)
	}
	if err := checkRange("BM_DISCOUNT", b.DiscountMin, b.DiscountMax); err != nil {
		return err
	}
	if err := checkRange("BM_STOLEN_DISCOUNT", b.StolenDiscountMin, b.StolenDiscountMax); err != nil {
		return err
	}
	for name, p := range map[string]float64{
		"BM_EXCLUSIVE_CHANCE":         b.ExclusiveChance,
		"BM_COMPONENT_DEFECT_CHANCE":  b.ComponentDefectChance,
		"BM_UNRELIABLE_SELLER_CHANCE": b.UnreliableSellerChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, p)
		}
	}
	if b.ConfirmTimeout <= 0 {
		return fmt.Errorf("BM_CONFIRM_TIMEOUT must be positive, got %v", b.ConfirmTimeout)
	}
	if b.MaxPhones < 0 || b.MaxMonthlyPhones < 0 {
		return fmt.Errorf("phone caps must not be negative")
	}
	// a cycle lasts up to 25h across a DST change; shorter retention would prune live batches
	if b.OfferRetention < MinOfferRetention {
		return fmt.Errorf("BM_OFFER_RETENTION must be at least %v, got %v", MinOfferRetention, b.OfferRetention)
	}
	_, err := b.Location()
	return err
}

// MinOfferRetention is the longest a single game cycle can last.
const MinOfferRetention = 25 * time.Hour

// discounts are fractions in [0,1)
func checkRange(name string, lo, hi float64) error {
	if lo < 0 || hi >= 1 || lo > hi {
		return fmt.Errorf("%s_MIN/%s_MAX must satisfy 0 <= min <= max < 1, got %v..%v", name, name, lo, hi)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.BlackMarket.Validate(); err != nil {
		return nil, fmt.Errorf("invalid black market config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
