// Package config loads the server configuration from a YAML file with
// sensible defaults for a local single-process deployment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener and upload storage.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
}

// RegistryConfig selects and configures the cluster registry backend.
type RegistryConfig struct {
	// Type is one of: jsonfile, inmemory, sqlite, postgres, mysql,
	// mssql, redis, mongo, neo4j.
	Type string `yaml:"type"`
	// Path is the registry file location for the jsonfile backend.
	Path string `yaml:"path"`
	// DSN is the connection string for relational backends, the URL
	// for redis and mongo, and the bolt URI for neo4j.
	DSN      string `yaml:"dsn"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
}

// QdrantConfig contains connection details for a Qdrant vector index.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	VectorSize uint64 `yaml:"vector_size"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	// Type is one of: memory, qdrant, postgres.
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	// Model is the OpenAI embedding model name.
	Model string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// GeneratorConfig configures the generation backend.
type GeneratorConfig struct {
	// Type is one of: gemini, openai.
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// PipelineConfig configures chunking and retrieval.
type PipelineConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Registry  RegistryConfig  `yaml:"registry"`
	Index     IndexConfig     `yaml:"index"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration for a local deployment: flat-file
// registry, in-memory index.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			UploadDir: "uploaded_textbooks",
		},
		Registry: RegistryConfig{
			Type: "jsonfile",
			Path: "clusters.json",
		},
		Index: IndexConfig{
			Type: "memory",
		},
		Embedder: EmbedderConfig{
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Generator: GeneratorConfig{
			Type:      "gemini",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Pipeline: PipelineConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         3,
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = def.Server.UploadDir
	}
	if cfg.Registry.Type == "" {
		cfg.Registry.Type = def.Registry.Type
	}
	if cfg.Registry.Type == "jsonfile" && cfg.Registry.Path == "" {
		cfg.Registry.Path = def.Registry.Path
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = def.Index.Type
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant == nil {
		cfg.Index.Qdrant = &QdrantConfig{}
	}
	if cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Host == "" {
			cfg.Index.Qdrant.Host = "localhost"
		}
		if cfg.Index.Qdrant.Port == 0 {
			cfg.Index.Qdrant.Port = 6334
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "textbook_chunks"
		}
		if cfg.Index.Qdrant.VectorSize == 0 {
			cfg.Index.Qdrant.VectorSize = 1536
		}
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = def.Embedder.APIKeyEnv
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = def.Generator.Type
	}
	if cfg.Generator.APIKeyEnv == "" {
		if cfg.Generator.Type == "openai" {
			cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
		} else {
			cfg.Generator.APIKeyEnv = def.Generator.APIKeyEnv
		}
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = def.Pipeline.ChunkSize
	}
	if cfg.Pipeline.ChunkOverlap == 0 {
		cfg.Pipeline.ChunkOverlap = def.Pipeline.ChunkOverlap
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = def.Pipeline.TopK
	}
}
