package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Duplicate target policies accepted by CONVERSION_DUPLICATE_TARGETS.
const (
	DuplicateTargetsReject = "reject"
	DuplicateTargetsDedupe = "dedupe"
)

// MasterKeySize is the required AES-256 key length in bytes.
const MasterKeySize = 32

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Encryption EncryptionConfig
	Conversion ConversionConfig
	Audit      AuditConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EncryptionConfig carries the field-level encryption master key material.
// Exactly one of Key (raw 32-byte key, base64 encoded in the environment) or
// Passphrase+Salt must be supplied; Load fails otherwise so the process never
// starts without a usable key.
type EncryptionConfig struct {
	Key        []byte
	Passphrase string
	Salt       []byte
}

// ConversionConfig tunes the conversion engine.
type ConversionConfig struct {
	DuplicateTargets string
	PersistTimeout   time.Duration
	FanOutLimit      int
	SchemaCacheTTL   time.Duration
}

// AuditConfig tunes audit query and export limits.
type AuditConfig struct {
	QueryLimit  int
	ExportLimit int
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
		if !errors.As(err, &notFound) {
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	enc, err := loadEncryption(v)
	if err != nil {
		return nil, err
	}
	cfg.Encryption = enc

	policy := strings.ToLower(v.GetString("CONVERSION_DUPLICATE_TARGETS"))
	if policy != DuplicateTargetsReject && policy != DuplicateTargetsDedupe {
		return nil, fmt.Errorf("invalid CONVERSION_DUPLICATE_TARGETS %q: must be %q or %q",
			policy, DuplicateTargetsReject, DuplicateTargetsDedupe)
	}
	cfg.Conversion = ConversionConfig{
		DuplicateTargets: policy,
		PersistTimeout:   parseDuration(v.GetString("CONVERSION_PERSIST_TIMEOUT"), 5*time.Second),
		FanOutLimit:      v.GetInt("CONVERSION_FANOUT_LIMIT"),
		SchemaCacheTTL:   parseDuration(v.GetString("SCHEMA_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Audit = AuditConfig{
		QueryLimit:  v.GetInt("AUDIT_QUERY_LIMIT"),
		ExportLimit: v.GetInt("AUDIT_EXPORT_LIMIT"),
	}

	return cfg, nil
}

// loadEncryption validates the master key material. The key value itself is
// never logged; a missing or malformed key is a startup failure.
func loadEncryption(v *viper.Viper) (EncryptionConfig, error) {
	keyB64 := v.GetString("ENCRYPTION_MASTER_KEY")
	passphrase := v.GetString("ENCRYPTION_PASSPHRASE")

	if keyB64 == "" && passphrase == "" {
		return EncryptionConfig{}, errors.New("ENCRYPTION_MASTER_KEY or ENCRYPTION_PASSPHRASE is required")
	}

	if keyB64 != "" {
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return EncryptionConfig{}, fmt.Errorf("ENCRYPTION_MASTER_KEY is not valid base64: %w", err)
		}
		if len(key) != MasterKeySize {
			return EncryptionConfig{}, fmt.Errorf("ENCRYPTION_MASTER_KEY must be %d bytes, got %d", MasterKeySize, len(key))
		}
		return EncryptionConfig{Key: key}, nil
	}

	saltB64 := v.GetString("ENCRYPTION_KDF_SALT")
	if saltB64 == "" {
		return EncryptionConfig{}, errors.New("ENCRYPTION_KDF_SALT is required when using ENCRYPTION_PASSPHRASE")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return EncryptionConfig{}, fmt.Errorf("ENCRYPTION_KDF_SALT is not valid base64: %w", err)
	}
	return EncryptionConfig{Passphrase: passphrase, Salt: salt}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "crossmark")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CONVERSION_DUPLICATE_TARGETS", DuplicateTargetsReject)
	v.SetDefault("CONVERSION_PERSIST_TIMEOUT", "5s")
	v.SetDefault("CONVERSION_FANOUT_LIMIT", 8)
	v.SetDefault("SCHEMA_CACHE_TTL", "5m")

	v.SetDefault("AUDIT_QUERY_LIMIT", 100)
	v.SetDefault("AUDIT_EXPORT_LIMIT", 5000)
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
