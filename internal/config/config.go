package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "EDURAG_"

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	APIAddr                string  `koanf:"api_addr"`
	TemporalAddress        string  `koanf:"temporal_address"`
	TemporalTaskQueue      string  `koanf:"temporal_task_queue"`
	PostgresURL            string  `koanf:"postgres_url"`
	DataInRoot             string  `koanf:"data_in"`
	ChunkSize              int     `koanf:"chunk_size"`
	ChunkOverlap           int     `koanf:"chunk_overlap"`
	EmbedDim               int     `koanf:"embed_dim"`
	EmbedProviders         string  `koanf:"embed_providers"`
	EmbedBatchSize         int     `koanf:"embed_batch_size"`
	EmbedBatchDelayMS      int     `koanf:"embed_batch_delay_ms"`
	EmbedMaxRetries        int     `koanf:"embed_max_retries"`
	RetrievalTopK          int     `koanf:"retrieval_top_k"`
	RetrievalMinSimilarity float64 `koanf:"retrieval_min_similarity"`
	LogLevel               string  `koanf:"log_level"`
	LogFormat              string  `koanf:"log_format"`
}

// Load reads the embedded defaults, then the YAML file named by
// EDURAG_CONFIG (if any), then EDURAG_* environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv(envPrefix + "CONFIG"))
}

func LoadFile(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load config defaults: %w", err)
	}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	// EDURAG_CHUNK_SIZE -> chunk_size
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 5
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = 10
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = 5
	}
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("embed_dim must be positive, got %d", c.EmbedDim)
	}
	if c.RetrievalMinSimilarity < 0.4 || c.RetrievalMinSimilarity > 1 {
		return fmt.Errorf("retrieval_min_similarity must be within [0.4, 1], got %.2f", c.RetrievalMinSimilarity)
	}
	return nil
}
