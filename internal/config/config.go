// Package config is the engine's configuration hierarchy, grounded
// directly on the teacher's pkg/core.Config: four layers, each
// overriding the one beneath it —
//
//	1. Programmatic overrides (CLI flags applied after loading)
//	2. Environment variables (NMT_* prefix)
//	3. YAML configuration file
//	4. Built-in defaults
//
// covering §6's config.json persisted fields (version, hnsw, chunking,
// embedding) plus the ambient storage/graph/compaction/log settings the
// spec leaves implicit.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigVersion is written into config.json's "version" field so a
// future engine revision can detect and migrate an older on-disk layout.
const ConfigVersion = 1

// HNSWConfig mirrors §6's persisted hnsw{} block.
type HNSWConfig struct {
	M              int `yaml:"m"`
	EfConstruction int `yaml:"efConstruction"`
	EfSearch       int `yaml:"efSearch"`
}

// ChunkingConfig mirrors §6's persisted chunking{} block.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig mirrors §6's persisted embedding{} block.
type EmbeddingConfig struct {
	Dim int `yaml:"dim"`
}

// StorageConfig groups durability settings, ambient to the spec but
// carried the way the teacher carries pkg/core.StorageConfig.
type StorageConfig struct {
	DataPath           string `yaml:"dataPath"`
	FsyncPolicy        string `yaml:"fsyncPolicy"` // always|interval|off
	CheckpointEveryOps int    `yaml:"checkpointEveryOps"`
}

// GraphConfig groups the neuron graph manager's tunables (§4.F).
type GraphConfig struct {
	SemanticThreshold float64 `yaml:"semanticThreshold"`
	AutoConnectK      int     `yaml:"autoConnectK"`
	AutoConnect       bool    `yaml:"autoConnect"`
}

// CompactionConfig groups the background compaction scheduler's
// interval (§4.K).
type CompactionConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig groups structured-logging settings, ambient to the spec but
// carried the way the rest of the corpus carries it.
type LogConfig struct {
	Level  string `yaml:"level"` // trace|debug|info|warn|error
	Pretty bool   `yaml:"pretty"`
}

// Config is the root configuration object.
type Config struct {
	Version    int              `yaml:"version"`
	HNSW       HNSWConfig       `yaml:"hnsw"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Storage    StorageConfig    `yaml:"storage"`
	Graph      GraphConfig      `yaml:"graph"`
	Compaction CompactionConfig `yaml:"compaction"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the built-in defaults, matching §6's documented
// defaults and the hnsw.DefaultParams()/ingest.DefaultChunkOptions()
// values used elsewhere in the engine.
func Default() *Config {
	return &Config{
		Version: ConfigVersion,
		HNSW: HNSWConfig{
			M:              16,
			EfConstruction: 200,
			EfSearch:       64,
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Embedding: EmbeddingConfig{
			Dim: 384,
		},
		Storage: StorageConfig{
			DataPath:           "./data",
			FsyncPolicy:        "always",
			CheckpointEveryOps: 1000,
		},
		Graph: GraphConfig{
			SemanticThreshold: 0.7,
			AutoConnectK:      20,
			AutoConnect:       true,
		},
		Compaction: CompactionConfig{
			Interval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// FromFile loads a YAML config file, layered over the defaults: fields
// absent from the file keep their default value.
func FromFile(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies NMT_*-prefixed environment variable overrides onto cfg
// (or a fresh Default() if cfg is nil) and returns it.
func FromEnv(cfg *Config) *Config {
	if cfg == nil {
		cfg = Default()
	}
	setEnvInt("NMT_HNSW_M", &cfg.HNSW.M)
	setEnvInt("NMT_HNSW_EF_CONSTRUCTION", &cfg.HNSW.EfConstruction)
	setEnvInt("NMT_HNSW_EF_SEARCH", &cfg.HNSW.EfSearch)
	setEnvInt("NMT_CHUNK_SIZE", &cfg.Chunking.Size)
	setEnvInt("NMT_CHUNK_OVERLAP", &cfg.Chunking.Overlap)
	setEnvInt("NMT_EMBEDDING_DIM", &cfg.Embedding.Dim)
	setEnvStr("NMT_DATA_PATH", &cfg.Storage.DataPath)
	setEnvStr("NMT_FSYNC_POLICY", &cfg.Storage.FsyncPolicy)
	setEnvInt("NMT_CHECKPOINT_EVERY_OPS", &cfg.Storage.CheckpointEveryOps)
	setEnvFloat("NMT_SEMANTIC_THRESHOLD", &cfg.Graph.SemanticThreshold)
	setEnvInt("NMT_AUTO_CONNECT_K", &cfg.Graph.AutoConnectK)
	setEnvBool("NMT_AUTO_CONNECT", &cfg.Graph.AutoConnect)
	setEnvDuration("NMT_COMPACTION_INTERVAL", &cfg.Compaction.Interval)
	setEnvStr("NMT_LOG_LEVEL", &cfg.Log.Level)
	setEnvBool("NMT_LOG_PRETTY", &cfg.Log.Pretty)
	return cfg
}

// Load resolves the full four-level hierarchy: defaults, then an
// optional YAML file, then environment variables. Programmatic overrides
// (CLI flags) are the caller's responsibility to apply after Load
// returns, mirroring the teacher's layering.
func Load(yamlPath string) (*Config, error) {
	var cfg *Config
	if yamlPath != "" {
		var err error
		cfg, err = FromFile(yamlPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = Default()
	}
	return FromEnv(cfg), nil
}

// Validate checks structural invariants across the whole config.
func (c *Config) Validate() error {
	if c.HNSW.M <= 0 {
		return fmt.Errorf("hnsw.m must be positive")
	}
	if c.HNSW.EfConstruction <= 0 || c.HNSW.EfSearch <= 0 {
		return fmt.Errorf("hnsw.efConstruction and hnsw.efSearch must be positive")
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, chunking.size)")
	}
	if c.Embedding.Dim <= 0 {
		return fmt.Errorf("embedding.dim must be positive")
	}
	if c.Storage.DataPath == "" {
		return fmt.Errorf("storage.dataPath must not be empty")
	}
	policy := strings.ToLower(strings.TrimSpace(c.Storage.FsyncPolicy))
	if policy != "always" && policy != "interval" && policy != "off" {
		return fmt.Errorf("storage.fsyncPolicy must be one of always|interval|off")
	}
	if c.Graph.SemanticThreshold < 0 || c.Graph.SemanticThreshold > 1 {
		return fmt.Errorf("graph.semanticThreshold must be in [0,1]")
	}
	return nil
}

func setEnvStr(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setEnvBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func setEnvInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setEnvFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func setEnvDuration(key string, target *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
