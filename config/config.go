package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Vision     VisionConfig     `yaml:"vision"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Query      QueryConfig      `yaml:"query"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for area-watch push notifications.
// Notifications are disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int   `yaml:"port"`
	CacheTTLSeconds int   `yaml:"cache_ttl_seconds"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// VisionConfig configures the vision-language model used to read signs.
type VisionConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	MaxTokens         int           `yaml:"max_tokens"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	Timeout           time.Duration `yaml:"-"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	MaxAttempts       int           `yaml:"max_attempts"`
}

// StorageConfig configures the S3-compatible bucket holding sign photos.
// An empty bucket disables uploads; spots then carry the placeholder URL.
type StorageConfig struct {
	Bucket         string        `yaml:"bucket"`
	Region         string        `yaml:"region"`
	Endpoint       string        `yaml:"endpoint"`
	AccessKeyID    string        `yaml:"access_key_id"`
	SecretKey      string        `yaml:"secret_access_key"`
	UsePathStyle   bool          `yaml:"use_path_style"`
	Prefix         string        `yaml:"prefix"`
	PublicBaseURL  string        `yaml:"public_base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// IngestConfig holds ingestion limits.
type IngestConfig struct {
	// WriteTimeoutSeconds bounds the spot+periods transaction.
	WriteTimeoutSeconds int           `yaml:"write_timeout_seconds"`
	WriteTimeout        time.Duration `yaml:"-"`
}

// QueryConfig holds viewport query limits.
type QueryConfig struct {
	MaxResults int `yaml:"max_results"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset values and resolves derived durations. The
// OPENAI_API_KEY environment variable overrides vision.api_key.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 15 << 20
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Vision.APIKey = key
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = "gpt-4o"
	}
	if cfg.Vision.MaxTokens <= 0 {
		cfg.Vision.MaxTokens = 1024
	}
	if cfg.Vision.TimeoutSeconds <= 0 {
		cfg.Vision.TimeoutSeconds = 60
	}
	cfg.Vision.Timeout = time.Duration(cfg.Vision.TimeoutSeconds) * time.Second
	if cfg.Vision.RequestsPerMinute <= 0 {
		cfg.Vision.RequestsPerMinute = 60
	}
	if cfg.Vision.MaxAttempts <= 0 {
		cfg.Vision.MaxAttempts = 2
	}

	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "parking-plates"
	}
	if cfg.Storage.TimeoutSeconds <= 0 {
		cfg.Storage.TimeoutSeconds = 15
	}
	cfg.Storage.Timeout = time.Duration(cfg.Storage.TimeoutSeconds) * time.Second

	if cfg.Ingest.WriteTimeoutSeconds <= 0 {
		cfg.Ingest.WriteTimeoutSeconds = 10
	}
	cfg.Ingest.WriteTimeout = time.Duration(cfg.Ingest.WriteTimeoutSeconds) * time.Second

	if cfg.Query.MaxResults <= 0 {
		cfg.Query.MaxResults = 500
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
}
