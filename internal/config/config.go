package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ClickHouseConfig holds the audit sink connection configuration
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// KafkaConfig holds notification transport configuration
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
}

// RegistryConfig holds the registry identity and storage selection
type RegistryConfig struct {
	Owner      string `yaml:"owner"`
	APIKeyHash string `yaml:"api_key_hash"`
	Storage    string `yaml:"storage"`
}

// SourceConfig holds the upstream solar resource API configuration
type SourceConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// SiteConfig names one site the agent tracks
type SiteConfig struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// AgentConfig holds the ingestion agent configuration
type AgentConfig struct {
	ServerURL    string        `yaml:"server_url"`
	APIKey       string        `yaml:"api_key"`
	Schedule     string        `yaml:"schedule"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	Sites        []SiteConfig  `yaml:"sites"`
}

// AuditorConfig holds the audit consumer configuration
type AuditorConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config represents the complete configuration for all binaries
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Registry   RegistryConfig   `yaml:"registry"`
	Source     SourceConfig     `yaml:"source"`
	Agent      AgentConfig      `yaml:"agent"`
	Auditor    AuditorConfig    `yaml:"auditor"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoadConfig loads configuration from the file named by CONFIG_PATH (default
// ./config.yaml), then applies environment overrides and defaults. A missing
// file is not an error so containerized deployments can run on environment
// variables alone.
func LoadConfig() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnv overrides file values with environment variables where set
func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.ClickHouse.Addr = getEnv("CLICKHOUSE_ADDR", cfg.ClickHouse.Addr)
	cfg.ClickHouse.Database = getEnv("CLICKHOUSE_DATABASE", cfg.ClickHouse.Database)
	cfg.ClickHouse.User = getEnv("CLICKHOUSE_USER", cfg.ClickHouse.User)
	cfg.ClickHouse.Password = getEnv("CLICKHOUSE_PASSWORD", cfg.ClickHouse.Password)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}

	cfg.Registry.Owner = getEnv("REGISTRY_OWNER", cfg.Registry.Owner)
	cfg.Registry.APIKeyHash = getEnv("REGISTRY_API_KEY_HASH", cfg.Registry.APIKeyHash)
	cfg.Registry.Storage = getEnv("REGISTRY_STORAGE", cfg.Registry.Storage)

	cfg.Source.BaseURL = getEnv("SOURCE_BASE_URL", cfg.Source.BaseURL)
	cfg.Source.APIKey = getEnv("SOURCE_API_KEY", cfg.Source.APIKey)

	cfg.Agent.ServerURL = getEnv("AGENT_SERVER_URL", cfg.Agent.ServerURL)
	cfg.Agent.APIKey = getEnv("AGENT_API_KEY", cfg.Agent.APIKey)
	cfg.Agent.Schedule = getEnv("AGENT_SCHEDULE", cfg.Agent.Schedule)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = "solar_registry"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5 * time.Minute
	}

	if cfg.ClickHouse.Addr == "" {
		cfg.ClickHouse.Addr = "localhost:9000"
	}
	if cfg.ClickHouse.Database == "" {
		cfg.ClickHouse.Database = "solar_audit"
	}
	if cfg.ClickHouse.User == "" {
		cfg.ClickHouse.User = "default"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	if cfg.Registry.Owner == "" {
		cfg.Registry.Owner = "solar-oracle"
	}
	if cfg.Registry.Storage == "" {
		cfg.Registry.Storage = "postgres"
	}

	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 10 * time.Second
	}

	if cfg.Agent.ServerURL == "" {
		cfg.Agent.ServerURL = "http://localhost:8080"
	}
	if cfg.Agent.Schedule == "" {
		cfg.Agent.Schedule = "*/15 * * * *"
	}
	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 15 * time.Second
	}
	if cfg.Agent.MaxRetries == 0 {
		cfg.Agent.MaxRetries = 3
	}
	if cfg.Agent.RetryBackoff == 0 {
		cfg.Agent.RetryBackoff = 5 * time.Second
	}

	if cfg.Auditor.BatchSize == 0 {
		cfg.Auditor.BatchSize = 500
	}
	if cfg.Auditor.FlushInterval == 0 {
		cfg.Auditor.FlushInterval = 5 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if c.Registry.Owner == "" {
		return fmt.Errorf("registry.owner is required")
	}
	if c.Registry.Storage != "postgres" && c.Registry.Storage != "memory" {
		return fmt.Errorf("registry.storage must be postgres or memory")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
