package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Vector index drivers.
const (
	VectorDriverRedis  = "redis"
	VectorDriverMilvus = "milvus"
)

// Config holds the listing search configuration shared by the API and the workers.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Redis       RedisConfig       `yaml:"redis"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Records     RecordsConfig     `yaml:"records"`
	Broker      BrokerConfig      `yaml:"broker"`
	Workers     WorkersConfig     `yaml:"workers"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Search      SearchConfig      `yaml:"search"`
	Rerank      RerankConfig      `yaml:"rerank"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds the connection used by the queues, the vector index and the embedding cache.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// VectorIndexConfig selects and tunes the similarity store.
type VectorIndexConfig struct {
	Driver          string       `yaml:"driver"` // redis, milvus (default: redis)
	KeyPrefix       string       `yaml:"key_prefix"`
	Collection      string       `yaml:"collection"`
	HNSWM           int          `yaml:"hnsw_m"`
	HNSWEFConstruct int          `yaml:"hnsw_ef_construction"`
	Milvus          MilvusConfig `yaml:"milvus"`
}

// MilvusConfig holds Milvus connection settings.
type MilvusConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RecordsConfig points at the canonical listing store.
type RecordsConfig struct {
	DSN      string `yaml:"dsn"`
	Table    string `yaml:"table"`
	PageSize int    `yaml:"page_size"`
}

// BrokerConfig holds queue polling settings.
type BrokerConfig struct {
	PollTimeoutSec int `yaml:"poll_timeout_sec"`
	BackoffSec     int `yaml:"backoff_sec"`
}

// PollTimeout is the blocking pop timeout.
func (b BrokerConfig) PollTimeout() time.Duration {
	return time.Duration(b.PollTimeoutSec) * time.Second
}

// Backoff is the pause after a failed message.
func (b BrokerConfig) Backoff() time.Duration {
	return time.Duration(b.BackoffSec) * time.Second
}

// WorkersConfig holds worker pool settings.
type WorkersConfig struct {
	InstancesPerQueue int `yaml:"instances_per_queue"`
}

// EmbeddingConfig holds embedding tier settings.
type EmbeddingConfig struct {
	Model    ModelConfig    `yaml:"model"`
	Fallback FallbackConfig `yaml:"fallback"`
}

// ModelConfig configures the primary sentence-embedding model served over an OpenAI-compatible API.
type ModelConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	MaxBatchSize int    `yaml:"max_batch_size"`
	Cache        bool   `yaml:"cache"`
}

// Enabled reports whether a model endpoint is configured at all.
func (m ModelConfig) Enabled() bool {
	return m.BaseURL != "" && m.Model != ""
}

// FallbackConfig configures the term-frequency vectorizer tier.
type FallbackConfig struct {
	MaxFeatures int `yaml:"max_features"`
}

// SearchConfig holds query limits.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// RerankConfig configures the generative model used for feedback re-ranking.
type RerankConfig struct {
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	HealthTimeoutSec   int     `yaml:"health_timeout_sec"`
	GenerateTimeoutSec int     `yaml:"generate_timeout_sec"`
	StartTimeoutSec    int     `yaml:"start_timeout_sec"`
	AutoStart          bool    `yaml:"auto_start"`
	Temperature        float64 `yaml:"temperature"`
	NumPredict         int     `yaml:"num_predict"`
	TopP               float64 `yaml:"top_p"`
	NumCtx             int     `yaml:"num_ctx"`
}

// Load reads configuration from a YAML file by environment name (local, docker, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, expanding env variables and applying defaults.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	c.VectorIndex.applyDefaults()
	if c.Records.Table == "" {
		c.Records.Table = "imoveis"
	}
	if c.Records.PageSize <= 0 {
		c.Records.PageSize = 100
	}
	if c.Broker.PollTimeoutSec <= 0 {
		c.Broker.PollTimeoutSec = 5
	}
	if c.Broker.BackoffSec <= 0 {
		c.Broker.BackoffSec = 5
	}
	if c.Workers.InstancesPerQueue <= 0 {
		c.Workers.InstancesPerQueue = 1
	}
	if c.Embedding.Model.TimeoutSec <= 0 {
		c.Embedding.Model.TimeoutSec = 30
	}
	if c.Embedding.Model.MaxBatchSize <= 0 {
		c.Embedding.Model.MaxBatchSize = 64
	}
	if c.Embedding.Fallback.MaxFeatures <= 0 {
		c.Embedding.Fallback.MaxFeatures = 384
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 50
	}
	c.Rerank.applyDefaults()
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = c.Rerank.WorstCaseSec() + writeSlackSec
	}
}

// writeSlackSec is the room left after a worst-case rerank to write the response.
const writeSlackSec = 15

// WorstCaseSec bounds how long one rerank call may block before its outcome
// is known: a health check, then inside EnsureReady another check, the full
// start wait and one last in-flight check, then generation.
func (r RerankConfig) WorstCaseSec() int {
	return 3*r.HealthTimeoutSec + r.StartTimeoutSec + r.GenerateTimeoutSec
}

func (v *VectorIndexConfig) applyDefaults() {
	if v.Driver == "" {
		v.Driver = VectorDriverRedis
	}
	if v.KeyPrefix == "" {
		v.KeyPrefix = "imoveis:"
	}
	if v.Collection == "" {
		v.Collection = "imoveis"
	}
	if v.HNSWM <= 0 {
		v.HNSWM = 16
	}
	if v.HNSWEFConstruct <= 0 {
		v.HNSWEFConstruct = 200
	}
	if v.Milvus.Address == "" {
		v.Milvus.Address = "localhost:19530"
	}
	if v.Milvus.Database == "" {
		v.Milvus.Database = "default"
	}
}

func (r *RerankConfig) applyDefaults() {
	if r.Model == "" {
		r.Model = "gemma3:4b"
	}
	if r.HealthTimeoutSec <= 0 {
		r.HealthTimeoutSec = 5
	}
	if r.GenerateTimeoutSec <= 0 {
		r.GenerateTimeoutSec = 120
	}
	if r.StartTimeoutSec <= 0 {
		r.StartTimeoutSec = 30
	}
	if r.Temperature == 0 {
		r.Temperature = 0.1
	}
	if r.NumPredict <= 0 {
		r.NumPredict = 400
	}
	if r.TopP == 0 {
		r.TopP = 0.9
	}
	if r.NumCtx <= 0 {
		r.NumCtx = 4096
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	switch c.VectorIndex.Driver {
	case VectorDriverRedis, VectorDriverMilvus:
	default:
		return fmt.Errorf("vector_index.driver must be %q or %q, got %q",
			VectorDriverRedis, VectorDriverMilvus, c.VectorIndex.Driver)
	}
	if c.Records.DSN == "" {
		return fmt.Errorf("records.dsn is required")
	}
	if c.Embedding.Fallback.MaxFeatures <= 0 {
		return fmt.Errorf("embedding.fallback.max_features must be positive, got %d", c.Embedding.Fallback.MaxFeatures)
	}
	if c.Embedding.Model.Dimensions < 0 {
		return fmt.Errorf("embedding.model.dimensions must not be negative, got %d", c.Embedding.Model.Dimensions)
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	if c.Rerank.HealthTimeoutSec >= c.Rerank.GenerateTimeoutSec {
		return fmt.Errorf("rerank.health_timeout_sec (%d) must be shorter than rerank.generate_timeout_sec (%d)",
			c.Rerank.HealthTimeoutSec, c.Rerank.GenerateTimeoutSec)
	}
	if worst := c.Rerank.WorstCaseSec(); c.HTTP.WriteTimeoutSec <= worst {
		return fmt.Errorf("http.write_timeout_sec (%d) must exceed the worst-case rerank time of %ds",
			c.HTTP.WriteTimeoutSec, worst)
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
