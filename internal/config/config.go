// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// SettlementConfig holds the resolution windows and deposit bookkeeping.
// Fee rates and trade caps are domain constants, fixed per market at
// creation; only deployment-level knobs live here.
type SettlementConfig struct {
	ProposeWindow time.Duration // creator's window to propose after market end
	DisputeWindow time.Duration // contest window after a proposal
	SignupBonus   int64         // lamports credited to new accounts (dev/demo)
	AdminUserID   uuid.UUID     // the deployment's settlement authority
}

// RedisConfig holds the optional market-summary cache settings.
type RedisConfig struct {
	Addr       string        // "" disables the cache
	Password   string
	DB         int
	SummaryTTL time.Duration // default 2s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	Settlement SettlementConfig
	Redis      RedisConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// IsAdmin reports whether id is the configured settlement authority. The
// authority is fixed at deploy time and compared by exact equality; the zero
// UUID never matches, so an unset authority grants nobody admin power.
func (c *Config) IsAdmin(id uuid.UUID) bool {
	return c.Settlement.AdminUserID != uuid.Nil && id == c.Settlement.AdminUserID
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	// JWT secrets are mandatory
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Settlement.ProposeWindow <= 0 {
		errs = append(errs, fmt.Errorf(
			"SETTLEMENT_PROPOSE_WINDOW must be positive, got %s", c.Settlement.ProposeWindow))
	}
	if c.Settlement.DisputeWindow <= 0 {
		errs = append(errs, fmt.Errorf(
			"SETTLEMENT_DISPUTE_WINDOW must be positive, got %s", c.Settlement.DisputeWindow))
	}
	if c.Settlement.SignupBonus < 0 {
		errs = append(errs, fmt.Errorf(
			"SETTLEMENT_SIGNUP_BONUS must be non-negative, got %d", c.Settlement.SignupBonus))
	}
	if c.IsProd() && c.Settlement.SignupBonus > 0 {
		errs = append(errs, errors.New("SETTLEMENT_SIGNUP_BONUS must be 0 in production"))
	}
	if c.IsProd() && c.Settlement.AdminUserID == uuid.Nil {
		errs = append(errs, errors.New("SETTLEMENT_ADMIN_USER_ID must be set in production"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "evetabi_settlement"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Settlement ────────────────────────────────────────────────────────────
	bonus, err := getInt64("SETTLEMENT_SIGNUP_BONUS", 0)
	if err != nil {
		return nil, fmt.Errorf("SETTLEMENT_SIGNUP_BONUS: %w", err)
	}
	adminID := uuid.Nil
	if v := os.Getenv("SETTLEMENT_ADMIN_USER_ID"); v != "" {
		adminID, err = uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("SETTLEMENT_ADMIN_USER_ID: invalid uuid %q", v)
		}
	}
	cfg.Settlement = SettlementConfig{
		ProposeWindow: getDuration("SETTLEMENT_PROPOSE_WINDOW", 24*time.Hour),
		DisputeWindow: getDuration("SETTLEMENT_DISPUTE_WINDOW", 4*time.Hour),
		SignupBonus:   bonus,
		AdminUserID:   adminID,
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.Redis = RedisConfig{
		Addr:       getEnv("REDIS_ADDR", ""),
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         redisDB,
		SummaryTTL: getDuration("REDIS_SUMMARY_TTL", 2*time.Second),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
