package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	DB        DBConfig         `json:"db"`
	Extract   ExtractConfig    `json:"extract"`
	Embedding EmbeddingConfig  `json:"embedding"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Jobs      JobsConfig       `json:"jobs"`
	CORSAllow []string         `json:"cors_allow"`
}

type DBConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// ProviderConfig selects one extraction transport. Data is passed to the
// provider factory untouched and decoded there.
type ProviderConfig struct {
	Type  string      `json:"type"`
	Model string      `json:"model"`
	Data  interface{} `json:"data"`
}

type ExtractConfig struct {
	MaxChunkSize int              `json:"max_chunk_size"`
	Timeout      int              `json:"timeout"` // seconds, per provider call
	Providers    []ProviderConfig `json:"providers"`
}

type EmbeddingConfig struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Timeout   int    `json:"timeout"` // seconds
	ForceMock bool   `json:"force_mock"`
	CacheSize int    `json:"cache_size"`
	CacheTTL  int    `json:"cache_ttl_minutes"`
}

type RetrievalConfig struct {
	DefaultThreshold float64 `json:"default_threshold"`
	DefaultTopK      int     `json:"default_top_k"`
}

type JobsConfig struct {
	ExtractSpec  string `json:"extract_spec"`
	BackfillSpec string `json:"backfill_spec"`
	Concurrency  int    `json:"concurrency"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DB.DSN == "" && cfg.DB.Host == "" {
		return nil, fmt.Errorf("db.dsn or db.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Extract.MaxChunkSize <= 0 {
		cfg.Extract.MaxChunkSize = 15
	}
	if cfg.Extract.Timeout <= 0 {
		cfg.Extract.Timeout = 120
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = "http://127.0.0.1:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "mxbai-embed-large"
	}
	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = 1024
	}
	if cfg.Embedding.Timeout <= 0 {
		cfg.Embedding.Timeout = 10
	}
	if cfg.Embedding.CacheSize <= 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTL <= 0 {
		cfg.Embedding.CacheTTL = 120
	}
	if cfg.Retrieval.DefaultThreshold <= 0 {
		cfg.Retrieval.DefaultThreshold = 0.6
	}
	if cfg.Retrieval.DefaultThreshold > 1 {
		return nil, fmt.Errorf("retrieval.default_threshold must be in [0,1]")
	}
	if cfg.Retrieval.DefaultTopK <= 0 {
		cfg.Retrieval.DefaultTopK = 10
	}
	if cfg.Jobs.ExtractSpec == "" {
		cfg.Jobs.ExtractSpec = "*/5 * * * *"
	}
	if cfg.Jobs.BackfillSpec == "" {
		cfg.Jobs.BackfillSpec = "*/10 * * * *"
	}
	if cfg.Jobs.Concurrency <= 0 {
		cfg.Jobs.Concurrency = 4
	}
	return &cfg, nil
}
