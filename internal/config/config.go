// Package config loads process configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Cache drivers.
const (
	CacheDriverRedis = "redis"
	CacheDriverLocal = "local"
	CacheDriverNone  = "none"
)

// Store drivers. The memory driver serves built-in sample data.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Engine   Engine
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string `validate:"required"`
	GinMode         string `validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration
}

// StoreConfig selects the place storage backend.
type StoreConfig struct {
	Driver string `validate:"oneof=postgres memory"`
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host         string `validate:"required"`
	Port         string `validate:"required"`
	Name         string `validate:"required"`
	User         string `validate:"required"`
	Password     string
	SSLMode      string `validate:"required"`
	MaxOpenConns int    `validate:"gte=1"`
	MaxIdleConns int    `validate:"gte=0"`
}

// DSN renders the lib/pq connection URL.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

// CacheConfig selects the coordinate cache backend.
type CacheConfig struct {
	Driver string `validate:"oneof=redis local none"`
	// LocalMaxBytes bounds the in-process cache payload.
	LocalMaxBytes int64 `validate:"gte=1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// Engine holds the limits of the place exploration engine. It is passed to
// component constructors so engines with different limits can coexist.
type Engine struct {
	RadiusMin         float64       `validate:"gt=0"`
	RadiusMax         float64       `validate:"gtfield=RadiusMin"`
	DefaultRadius     float64       `validate:"gt=0"`
	MaxMapCoordinates int           `validate:"gte=1"`
	CacheTTL          time.Duration `validate:"gt=0"`
	DefaultPageSize   int           `validate:"gte=1"`
	MaxPageSize       int           `validate:"gtefield=DefaultPageSize"`
	MaxTags           int           `validate:"gte=1"`
	LatMin            float64       `validate:"gte=-90"`
	LatMax            float64       `validate:"lte=90,gtfield=LatMin"`
	LonMin            float64       `validate:"gte=-180"`
	LonMax            float64       `validate:"lte=180,gtfield=LonMin"`
	DefaultLocale     string        `validate:"required"`
	Locales           []string      `validate:"required,min=1,dive,required"`
}

// DefaultEngine returns the production engine limits.
func DefaultEngine() Engine {
	return Engine{
		RadiusMin:         1_000,
		RadiusMax:         5_000_000,
		DefaultRadius:     200_000,
		MaxMapCoordinates: 5_000,
		CacheTTL:          300 * time.Second,
		DefaultPageSize:   20,
		MaxPageSize:       100,
		MaxTags:           25,
		LatMin:            -90,
		LatMax:            90,
		LonMin:            -180,
		LonMax:            180,
		DefaultLocale:     "fr",
		Locales:           []string{"fr", "en"},
	}
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(envOrDefault("ENV_FILE", ".env"))

	def := DefaultEngine()
	cfg := &Config{
		Server: ServerConfig{
			Port:            envOrDefault("PORT", "8080"),
			GinMode:         envOrDefault("GIN_MODE", "release"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(envOrDefault("STORE_DRIVER", StoreDriverPostgres)),
		},
		Postgres: PostgresConfig{
			Host:         envOrDefault("DB_HOST", "localhost"),
			Port:         envOrDefault("DB_PORT", "5432"),
			Name:         envOrDefault("DB_NAME", "explorer"),
			User:         envOrDefault("DB_USER", "explorer"),
			Password:     os.Getenv("DB_PASS"),
			SSLMode:      envOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASS"),
			DB:       envInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Driver:        strings.ToLower(envOrDefault("CACHE_DRIVER", CacheDriverRedis)),
			LocalMaxBytes: int64(envInt("CACHE_LOCAL_MAX_BYTES", 64<<20)),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOrDefault("LOG_FORMAT", "text")),
		},
		Engine: Engine{
			RadiusMin:         envFloat("EXPLORE_RADIUS_MIN", def.RadiusMin),
			RadiusMax:         envFloat("EXPLORE_RADIUS_MAX", def.RadiusMax),
			DefaultRadius:     envFloat("EXPLORE_RADIUS_DEFAULT", def.DefaultRadius),
			MaxMapCoordinates: envInt("EXPLORE_MAX_MAP_COORDINATES", def.MaxMapCoordinates),
			CacheTTL:          envDuration("CACHE_TTL", def.CacheTTL),
			DefaultPageSize:   envInt("EXPLORE_PAGE_SIZE", def.DefaultPageSize),
			MaxPageSize:       envInt("EXPLORE_MAX_PAGE_SIZE", def.MaxPageSize),
			MaxTags:           envInt("EXPLORE_MAX_TAGS", def.MaxTags),
			LatMin:            def.LatMin,
			LatMax:            def.LatMax,
			LonMin:            def.LonMin,
			LonMax:            def.LonMax,
			DefaultLocale:     envOrDefault("DEFAULT_LOCALE", def.DefaultLocale),
			Locales:           envList("LOCALES", def.Locales),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field engine limits.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.Engine.validateDefaults()
}

func (e Engine) validateDefaults() error {
	var errs []error
	if e.DefaultRadius < e.RadiusMin || e.DefaultRadius > e.RadiusMax {
		errs = append(errs, fmt.Errorf("default radius %.0f outside [%.0f, %.0f]", e.DefaultRadius, e.RadiusMin, e.RadiusMax))
	}
	if !slices.Contains(e.Locales, e.DefaultLocale) {
		errs = append(errs, fmt.Errorf("default locale %q not in %v", e.DefaultLocale, e.Locales))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

func envInt(key string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return d
}

func envFloat(key string, d float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return d
}

// envDuration accepts Go durations ("5m") or plain seconds ("300").
func envDuration(key string, d time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return d
}

func envList(key string, d []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
