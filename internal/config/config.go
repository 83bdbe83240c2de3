package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the medsearch configuration. Loaded once at startup and
// treated as immutable for the rest of the run.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig holds record store (Postgres) connection settings.
type StoreConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// IndexConfig holds vector index (Milvus) connection and search settings.
type IndexConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	CollectionName string `yaml:"collection_name"`
	Metric         string `yaml:"metric"`         // L2, IP, COSINE (default: L2)
	SearchBreadth  int    `yaml:"search_breadth"` // HNSW ef, recall/latency trade-off
	Dimension      int    `yaml:"dimension"`      // embedding dimension of the collection
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // label for logs and metrics
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	ModelID  string `yaml:"model_id"`
}

// SearchConfig holds pipeline settings.
type SearchConfig struct {
	TopK              int `yaml:"top_k"`
	DefaultWindowDays int `yaml:"default_window_days"`
	TimeoutSec        int `yaml:"timeout_sec"`
}

// HTTPConfig holds the optional metrics/health listener settings.
// MetricsPort 0 disables the listener.
type HTTPConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Store.Port <= 0 {
		c.Store.Port = 5432
	}
	if c.Store.SSLMode == "" {
		c.Store.SSLMode = "disable"
	}
	if c.Index.Port <= 0 {
		c.Index.Port = 19530
	}
	if c.Index.Metric == "" {
		c.Index.Metric = "L2"
	}
	if c.Index.SearchBreadth <= 0 {
		c.Index.SearchBreadth = 100
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 50
	}
	if c.Search.DefaultWindowDays <= 0 {
		c.Search.DefaultWindowDays = 30
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
}

// Validate checks the configuration for correctness. A failure here is
// fatal at startup; nothing is recoverable per query.
func (c *Config) Validate() error {
	if c.Store.Host == "" {
		return fmt.Errorf("store.host is required")
	}
	if c.Store.User == "" {
		return fmt.Errorf("store.user is required")
	}
	if c.Store.Database == "" {
		return fmt.Errorf("store.database is required")
	}
	if c.Index.Host == "" {
		return fmt.Errorf("index.host is required")
	}
	if c.Index.CollectionName == "" {
		return fmt.Errorf("index.collection_name is required")
	}
	switch c.Index.Metric {
	case "L2", "IP", "COSINE":
	default:
		return fmt.Errorf("index.metric must be L2, IP or COSINE, got %q", c.Index.Metric)
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("index.dimension must be positive, got %d", c.Index.Dimension)
	}
	if c.Embedding.ModelID == "" {
		return fmt.Errorf("embedding.model_id is required")
	}
	if c.HTTP.MetricsPort < 0 || c.HTTP.MetricsPort > 65535 {
		return fmt.Errorf("http.metrics_port must be between 0 and 65535, got %d", c.HTTP.MetricsPort)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

// DSN renders the Postgres connection string.
func (c StoreConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Address renders the Milvus host:port address.
func (c IndexConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
