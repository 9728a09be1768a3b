package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultJWTSecret = "dev_secret"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Admission AdmissionConfig
	Matching  MatchingConfig
	Recompute RecomputeConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdmissionConfig tunes the enrollment atomic unit.
type AdmissionConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
	LockTimeout    time.Duration
}

// MatchingConfig governs scoring inputs and the weight snapshot cache.
type MatchingConfig struct {
	RatingScale     float64
	CacheEnabled    bool
	WeightsCacheTTL time.Duration
}

// RecomputeConfig sizes the staleness worker queue.
type RecomputeConfig struct {
	Enabled         bool
	Workers         int
	BufferSize      int
	MaxRetries      int
	RetryDelay      time.Duration
	RatingThreshold float64
}

// ExportsConfig toggles roster exports.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admission = AdmissionConfig{
		MaxAttempts:    v.GetInt("ADMISSION_MAX_ATTEMPTS"),
		InitialBackoff: parseDuration(v.GetString("ADMISSION_INITIAL_BACKOFF"), 25*time.Millisecond),
		MaxBackoff:     parseDuration(v.GetString("ADMISSION_MAX_BACKOFF"), 250*time.Millisecond),
		AttemptTimeout: parseDuration(v.GetString("ADMISSION_ATTEMPT_TIMEOUT"), 3*time.Second),
		LockTimeout:    parseDuration(v.GetString("ADMISSION_LOCK_TIMEOUT"), time.Second),
	}

	cfg.Matching = MatchingConfig{
		RatingScale:     v.GetFloat64("MATCHING_RATING_SCALE"),
		CacheEnabled:    v.GetBool("MATCHING_CACHE_ENABLED"),
		WeightsCacheTTL: parseDuration(v.GetString("MATCHING_WEIGHTS_CACHE_TTL"), 30*time.Second),
	}

	cfg.Recompute = RecomputeConfig{
		Enabled:         v.GetBool("ENABLE_RECOMPUTE"),
		Workers:         v.GetInt("RECOMPUTE_WORKERS"),
		BufferSize:      v.GetInt("RECOMPUTE_BUFFER_SIZE"),
		MaxRetries:      v.GetInt("RECOMPUTE_MAX_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("RECOMPUTE_RETRY_DELAY"), time.Second),
		RatingThreshold: v.GetFloat64("RECOMPUTE_RATING_THRESHOLD"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	if cfg.Env == EnvProduction && (strings.TrimSpace(cfg.JWT.Secret) == "" || cfg.JWT.Secret == defaultJWTSecret) {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "afterschool")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "afterschool-match-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMISSION_MAX_ATTEMPTS", 3)
	v.SetDefault("ADMISSION_INITIAL_BACKOFF", "25ms")
	v.SetDefault("ADMISSION_MAX_BACKOFF", "250ms")
	v.SetDefault("ADMISSION_ATTEMPT_TIMEOUT", "3s")
	v.SetDefault("ADMISSION_LOCK_TIMEOUT", "1s")

	v.SetDefault("MATCHING_RATING_SCALE", 5)
	v.SetDefault("MATCHING_CACHE_ENABLED", true)
	v.SetDefault("MATCHING_WEIGHTS_CACHE_TTL", "30s")

	v.SetDefault("ENABLE_RECOMPUTE", true)
	v.SetDefault("RECOMPUTE_WORKERS", 2)
	v.SetDefault("RECOMPUTE_BUFFER_SIZE", 64)
	v.SetDefault("RECOMPUTE_MAX_RETRIES", 3)
	v.SetDefault("RECOMPUTE_RETRY_DELAY", "1s")
	v.SetDefault("RECOMPUTE_RATING_THRESHOLD", 1.0)

	v.SetDefault("ENABLE_EXPORTS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
