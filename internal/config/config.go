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

// Config holds the omnisearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Keys guard the admin endpoints.
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

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible provider settings.
// An empty APIKey disables embeddings and model suggestions.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	ChatModel        string `yaml:"chat_model"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // 0 = keep cached query vectors forever
}

// IndexConfig holds document index layout settings.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"` // hnsw (default), flat
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	FallbackScan    int    `yaml:"fallback_scan"`
}

// FusionConfig holds hybrid score weights and branch sizing factors.
type FusionConfig struct {
	Semantic      float64 `yaml:"semantic"`
	Keyword       float64 `yaml:"keyword"`
	SemanticLimit float64 `yaml:"semantic_limit"`
	KeywordLimit  float64 `yaml:"keyword_limit"`
}

// SearchConfig holds search orchestration settings.
type SearchConfig struct {
	BranchTimeoutMs int          `yaml:"branch_timeout_ms"`
	SuggestionLimit int          `yaml:"suggestion_limit"`
	Fusion          FusionConfig `yaml:"fusion"`
}

// IndexingConfig holds indexer settings.
type IndexingConfig struct {
	SourceDSN    string `yaml:"source_dsn"`
	Workers      int    `yaml:"workers"`
	ReembedBatch int    `yaml:"reembed_batch"` // 0 = every document lacking an embedding
}

// SuggestConfig holds suggestion cache settings.
type SuggestConfig struct {
	CacheSize   int `yaml:"cache_size"`
	CacheTTLSec int `yaml:"cache_ttl_sec"`
	HistoryScan int `yaml:"history_scan"`
}

// AnalyticsConfig holds query log settings.
type AnalyticsConfig struct {
	QueueSize       int `yaml:"queue_size"`
	WriteTimeoutMs  int `yaml:"write_timeout_ms"`
	RetentionDays   int `yaml:"retention_days"` // 0 = keep forever
	TrimIntervalMin int `yaml:"trim_interval_min"`
	ScanBatch       int `yaml:"scan_batch"` // records per read; 0 = one read
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// PathEnvVar names an explicit config file path that overrides the lookup by environment.
const PathEnvVar = "OMNISEARCH_CONFIG"

// Load reads config/<env>.yaml, or the file named by OMNISEARCH_CONFIG.
func Load(env string) (Config, error) {
	configPath := os.Getenv(PathEnvVar)
	if configPath == "" {
		configPath = findConfigPath(env)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
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

// GetEnv returns the environment named by ENV, "local" when unset.
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// findConfigPath prefers ./config/<env>.yaml and falls back to the config
// directory of the source tree, so tests and `go run` work from any package.
func findConfigPath(env string) string {
	local := filepath.Join("config", env+".yaml")
	if fileExists(local) {
		return local
	}
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return local
	}
	root := filepath.Dir(filepath.Dir(filepath.Dir(file))) // internal/config -> module root
	if path := filepath.Join(root, local); fileExists(path) {
		return path
	}
	return local
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
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
