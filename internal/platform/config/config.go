package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration marks a process that must not start.
var ErrConfiguration = errors.New("invalid configuration")

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
	LockBackendEtcd   = "etcd"

	IssuanceBackendMemory = "memory"
	IssuanceBackendRedis  = "redis"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string
	HTTPPort       string
	IssuerHTTPPort string
	PostgresDSN    string
	AutoMigrate    bool
	KafkaBrokers   []string

	S2SAPIKey            string
	RegistrarURL         string
	RegistrarTimeout     time.Duration
	RegistrarMaxAttempts int

	LockBackend       string
	TabulationLockTTL time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	EtcdEndpoints     []string

	IssuanceBackend string
	IssuanceTTL     time.Duration

	OutboxPollInterval           time.Duration
	EnableElectionClosedConsumer bool
}

// Load reads an optional .env file, then the environment, then an optional
// YAML file named by CONFIG_FILE. Environment values win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: load .env: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
		}
	}

	cfg := Config{
		ServiceName:    v.GetString("SERVICE_NAME"),
		HTTPPort:       v.GetString("HTTP_PORT"),
		IssuerHTTPPort: v.GetString("ISSUER_HTTP_PORT"),
		PostgresDSN:    strings.TrimSpace(v.GetString("POSTGRES_DSN")),
		AutoMigrate:    boolValue(v, "AUTO_MIGRATE", false),
		KafkaBrokers:   listValue(v, "KAFKA_BROKERS"),

		S2SAPIKey:            strings.TrimSpace(v.GetString("S2S_API_KEY")),
		RegistrarURL:         strings.TrimSpace(v.GetString("REGISTRAR_URL")),
		RegistrarTimeout:     v.GetDuration("REGISTRAR_TIMEOUT"),
		RegistrarMaxAttempts: v.GetInt("REGISTRAR_MAX_ATTEMPTS"),

		LockBackend:       strings.ToLower(strings.TrimSpace(v.GetString("LOCK_BACKEND"))),
		TabulationLockTTL: v.GetDuration("TABULATION_LOCK_TTL"),
		RedisAddr:         strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		EtcdEndpoints:     listValue(v, "ETCD_ENDPOINTS"),

		IssuanceBackend: strings.ToLower(strings.TrimSpace(v.GetString("ISSUANCE_BACKEND"))),
		IssuanceTTL:     v.GetDuration("ISSUANCE_TTL"),

		OutboxPollInterval:           v.GetDuration("OUTBOX_POLL_INTERVAL"),
		EnableElectionClosedConsumer: boolValue(v, "ENABLE_ELECTION_CLOSED_CONSUMER", true),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once so operators fix them in one pass.
func (c Config) Validate() error {
	var problems []string
	if c.S2SAPIKey == "" {
		problems = append(problems, "S2S_API_KEY is required")
	}
	switch c.LockBackend {
	case LockBackendMemory, LockBackendRedis:
	case LockBackendEtcd:
		if len(c.EtcdEndpoints) == 0 {
			problems = append(problems, "ETCD_ENDPOINTS is required for the etcd lock backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("LOCK_BACKEND %q is not one of memory, redis, etcd", c.LockBackend))
	}
	switch c.IssuanceBackend {
	case IssuanceBackendMemory, IssuanceBackendRedis:
	default:
		problems = append(problems, fmt.Sprintf("ISSUANCE_BACKEND %q is not one of memory, redis", c.IssuanceBackend))
	}
	if (c.LockBackend == LockBackendRedis || c.IssuanceBackend == IssuanceBackendRedis) && c.RedisAddr == "" {
		problems = append(problems, "REDIS_ADDR is required for redis backends")
	}
	if c.RegistrarMaxAttempts < 1 {
		problems = append(problems, "REGISTRAR_MAX_ATTEMPTS must be at least 1")
	}
	if c.RegistrarTimeout <= 0 {
		problems = append(problems, "REGISTRAR_TIMEOUT must be positive")
	}
	if c.OutboxPollInterval <= 0 {
		problems = append(problems, "OUTBOX_POLL_INTERVAL must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "votecore")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ISSUER_HTTP_PORT", "8081")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("AUTO_MIGRATE", "false")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("S2S_API_KEY", "")
	v.SetDefault("REGISTRAR_URL", "http://localhost:8080")
	v.SetDefault("REGISTRAR_TIMEOUT", "5s")
	v.SetDefault("REGISTRAR_MAX_ATTEMPTS", 3)
	v.SetDefault("LOCK_BACKEND", LockBackendMemory)
	v.SetDefault("TABULATION_LOCK_TTL", "5m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ETCD_ENDPOINTS", "localhost:2379")
	v.SetDefault("ISSUANCE_BACKEND", IssuanceBackendMemory)
	v.SetDefault("ISSUANCE_TTL", "0s")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("ENABLE_ELECTION_CLOSED_CONSUMER", "true")
	v.SetDefault("CONFIG_FILE", "")
}

func listValue(v *viper.Viper, key string) []string {
	var items []string
	for _, value := range strings.Split(v.GetString(key), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func boolValue(v *viper.Viper, key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(v.GetString(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
