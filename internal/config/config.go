// Package config loads the service's operational settings: an optional
// service.yaml overlaid with environment variables, following the
// teacher's two-pass loadFromYAML + loadFromEnv Load() convention. This
// is distinct from the judge config (problems/languages), which is a
// JSON document per spec.md §6 and is loaded by package judgeconfig.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	RabbitMQ       RabbitMQConfig       `yaml:"rabbitmq"`
	MinIO          MinIOConfig          `yaml:"minio"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Workspace      WorkspaceConfig      `yaml:"workspace"`
	Log            LogConfig            `yaml:"log"`
}

type ServerConfig struct {
	BindAddress     string        `yaml:"bind_address"`
	BindPort        int           `yaml:"bind_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	EnableTestHooks bool          `yaml:"enable_test_hooks"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RabbitMQConfig struct {
	URL           string `yaml:"url"`
	QueueName     string `yaml:"queue_name"`
	PrefetchCount int    `yaml:"prefetch_count"`
}

type MinIOConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	BucketName string `yaml:"bucket_name"`
	UseSSL     bool   `yaml:"use_ssl"`
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := loadFromYAML(cfg, path); err != nil {
		return nil, err
	}
	loadFromEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func loadFromYAML(cfg *Config, path string) error {
	if path == "" {
		path = "service.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		cfg.Server.BindAddress = v
	}
	if v := os.Getenv("BIND_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.BindPort = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMQ.URL = v
	}
	if v := os.Getenv("RABBITMQ_QUEUE_NAME"); v != "" {
		cfg.RabbitMQ.QueueName = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
		cfg.MinIO.Enabled = true
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET_NAME"); v != "" {
		cfg.MinIO.BucketName = v
	}
	if v := os.Getenv("WORKSPACE_ROOT"); v != "" {
		cfg.Workspace.Root = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.BindAddress == "" {
		cfg.Server.BindAddress = "127.0.0.1"
	}
	if cfg.Server.BindPort == 0 {
		cfg.Server.BindPort = 12345
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.RabbitMQ.QueueName == "" {
		cfg.RabbitMQ.QueueName = "judge.submissions"
	}
	if cfg.RabbitMQ.PrefetchCount == 0 {
		cfg.RabbitMQ.PrefetchCount = 1
	}
	if cfg.MinIO.BucketName == "" {
		cfg.MinIO.BucketName = "judge-assets"
	}
	if cfg.CircuitBreaker.MaxRequests == 0 {
		cfg.CircuitBreaker.MaxRequests = 5
	}
	if cfg.CircuitBreaker.Interval == 0 {
		cfg.CircuitBreaker.Interval = 30 * time.Second
	}
	if cfg.CircuitBreaker.Timeout == 0 {
		cfg.CircuitBreaker.Timeout = 10 * time.Second
	}
	if cfg.CircuitBreaker.ConsecutiveFailures == 0 {
		cfg.CircuitBreaker.ConsecutiveFailures = 3
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "tmp"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.BindPort)
}
