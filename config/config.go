package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NetworkConfig holds the per-network blockchain settings.
type NetworkConfig struct {
	RPCURL            string `mapstructure:"rpc_url"`
	ConfirmationDepth int    `mapstructure:"confirmation_depth"`
}

// ChainConfig holds blockchain polling configuration.
type ChainConfig struct {
	Networks     map[string]NetworkConfig `mapstructure:"networks"`
	PollInterval time.Duration            `mapstructure:"poll_interval"`
	RPCTimeout   time.Duration            `mapstructure:"rpc_timeout"`
	BatchSize    int                      `mapstructure:"batch_size"`
}

// PaymentConfig holds payment creation policy.
type PaymentConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	DefaultNetwork string        `mapstructure:"default_network"`
	Currency       string        `mapstructure:"currency"`
	PayBaseURL     string        `mapstructure:"pay_base_url"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// WebhookConfig holds the delivery retry policy.
type WebhookConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BackoffCap   time.Duration `mapstructure:"backoff_cap"`
	Workers      int           `mapstructure:"workers"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	ClaimLease   time.Duration `mapstructure:"claim_lease"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// ExpirySweepInterval is how often the reaper scans for overdue payments.
const ExpirySweepInterval = 60 * time.Second

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SCG_ (Stablecoin Gateway).
// Nested keys use underscore: SCG_DATABASE_HOST, SCG_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "stablecoin_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("chain.networks.ethereum.rpc_url", "")
	v.SetDefault("chain.networks.ethereum.confirmation_depth", 12)
	v.SetDefault("chain.networks.polygon.rpc_url", "")
	v.SetDefault("chain.networks.polygon.confirmation_depth", 64)
	v.SetDefault("chain.poll_interval", "15s")
	v.SetDefault("chain.rpc_timeout", "10s")
	v.SetDefault("chain.batch_size", 100)
	v.SetDefault("payment.ttl", "30m")
	v.SetDefault("payment.default_network", "ethereum")
	v.SetDefault("payment.currency", "USDC")
	v.SetDefault("payment.pay_base_url", "https://pay.usdc.com")
	v.SetDefault("payment.cache_ttl", "5m")
	v.SetDefault("webhook.max_attempts", 3)
	v.SetDefault("webhook.backoff_base", "30s")
	v.SetDefault("webhook.backoff_cap", "10m")
	v.SetDefault("webhook.workers", 4)
	v.SetDefault("webhook.http_timeout", "10s")
	v.SetDefault("webhook.poll_interval", "5s")
	v.SetDefault("webhook.batch_size", 50)
	v.SetDefault("webhook.claim_lease", "2m")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "stablecoin-gateway")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SCG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SCG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
