package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = []string{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidAlgorithm(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Algorithm = "ivf"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown algorithm")
	}

	expected := `index.algorithm must be "hnsw" or "flat", got "ivf"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Fusion(t *testing.T) {
	tests := []struct {
		name   string
		fusion FusionConfig
		want   string
	}{
		{"weight above one", FusionConfig{Semantic: 1.5, Keyword: 0.3, SemanticLimit: 0.7, KeywordLimit: 0.5}, "search.fusion.semantic"},
		{"negative weight", FusionConfig{Semantic: 0.7, Keyword: -0.1, SemanticLimit: 0.7, KeywordLimit: 0.5}, "search.fusion.keyword"},
		{"zero limit factor", FusionConfig{Semantic: 0.7, Keyword: 0.3, SemanticLimit: 0.7}, "search.fusion.keyword_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Search.Fusion = tt.fusion

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Index.Algorithm != "hnsw" {
		t.Errorf("expected Algorithm=hnsw, got %q", cfg.Index.Algorithm)
	}
	if cfg.BranchTimeout() != 3*time.Second {
		t.Errorf("expected BranchTimeout=3s, got %v", cfg.BranchTimeout())
	}
	if cfg.Search.SuggestionLimit != 5 {
		t.Errorf("expected SuggestionLimit=5, got %d", cfg.Search.SuggestionLimit)
	}
	want := FusionConfig{Semantic: 0.7, Keyword: 0.3, SemanticLimit: 0.7, KeywordLimit: 0.5}
	if cfg.Search.Fusion != want {
		t.Errorf("expected fusion %+v, got %+v", want, cfg.Search.Fusion)
	}
	if cfg.Indexing.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Indexing.Workers)
	}
	if cfg.Retention() != 0 {
		t.Errorf("expected unlimited retention, got %v", cfg.Retention())
	}
	if cfg.Storage.KeyPrefix != "omnisearch:" {
		t.Errorf("expected KeyPrefix='omnisearch:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Index:    IndexConfig{Algorithm: "flat", HNSWM: 32},
		Search:   SearchConfig{BranchTimeoutMs: 500, Fusion: FusionConfig{Semantic: 0.5, Keyword: 0.5, SemanticLimit: 1, KeywordLimit: 1}},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.Algorithm != "flat" || cfg.Index.HNSWM != 32 {
		t.Errorf("index overridden: %+v", cfg.Index)
	}
	if cfg.BranchTimeout() != 500*time.Millisecond {
		t.Errorf("expected BranchTimeout=500ms, got %v", cfg.BranchTimeout())
	}
	if cfg.Search.Fusion.Semantic != 0.5 {
		t.Errorf("fusion overridden: %+v", cfg.Search.Fusion)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("OMNI_TEST_PORT", "9090")
	t.Setenv("OMNI_TEST_KEY", "")

	cfg, err := Parse([]byte(`
http:
  port: ${OMNI_TEST_PORT}
database:
  addrs: ["${OMNI_TEST_ADDR:-localhost:6379}"]
embedding:
  api_key: "${OMNI_TEST_KEY}"
analytics:
  retention_days: 30
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if len(cfg.Database.Addrs) != 1 || cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("unexpected addrs: %v", cfg.Database.Addrs)
	}
	if cfg.Embedding.APIKey != "" {
		t.Errorf("expected empty api key, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Retention() != 30*24*time.Hour {
		t.Errorf("unexpected retention: %v", cfg.Retention())
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000
	cfg.Indexing.Workers = -1
	cfg.Analytics.RetentionDays = -3

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"http.port", "indexing.workers", "analytics.retention_days"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 7070\ndatabase:\n  addrs: [\"db:6379\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 7070 || cfg.Database.Addrs[0] != "db:6379" {
		t.Errorf("unexpected config: %+v", cfg.HTTP)
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	for _, env := range []string{"local", "prod"} {
		if _, err := Load(env); err != nil {
			t.Errorf("config/%s.yaml: %v", env, err)
		}
	}
}
