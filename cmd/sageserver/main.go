// Command sageserver runs the RAG backend: document upload and
// clustering, vector ingestion and grounded question answering.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/sage/pkg/chunk"
	"github.com/opencampus/sage/pkg/config"
	"github.com/opencampus/sage/pkg/generation"
	"github.com/opencampus/sage/pkg/generation/gemini"
	genopenai "github.com/opencampus/sage/pkg/generation/openai"
	"github.com/opencampus/sage/pkg/index"
	idxmem "github.com/opencampus/sage/pkg/index/inmemory"
	idxopenai "github.com/opencampus/sage/pkg/index/openai"
	idxpostgres "github.com/opencampus/sage/pkg/index/postgres"
	idxqdrant "github.com/opencampus/sage/pkg/index/qdrant"
	"github.com/opencampus/sage/pkg/rag"
	"github.com/opencampus/sage/pkg/registry"
	"github.com/opencampus/sage/pkg/registry/consts"
	regmem "github.com/opencampus/sage/pkg/registry/inmemory"
	"github.com/opencampus/sage/pkg/registry/jsonfile"
	regmongo "github.com/opencampus/sage/pkg/registry/mongo"
	"github.com/opencampus/sage/pkg/registry/mssql"
	"github.com/opencampus/sage/pkg/registry/mysql"
	regneo4j "github.com/opencampus/sage/pkg/registry/neo4j"
	regpostgres "github.com/opencampus/sage/pkg/registry/postgres"
	regredis "github.com/opencampus/sage/pkg/registry/redis"
	"github.com/opencampus/sage/pkg/registry/sqlite"
	"github.com/opencampus/sage/pkg/server"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	regStore, err := newRegistryStore(ctx, cfg.Registry)
	if err != nil {
		slog.Error("failed to initialize registry", "type", cfg.Registry.Type, "error", err)
		os.Exit(1)
	}
	reg := registry.New(regStore)

	idxStore, err := newIndexStore(cfg.Index)
	if err != nil {
		slog.Error("failed to initialize vector index", "type", cfg.Index.Type, "error", err)
		os.Exit(1)
	}

	splitter, err := chunk.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		slog.Error("invalid chunking config", "error", err)
		os.Exit(1)
	}

	gen, err := newGenerator(cfg.Generator)
	if err != nil {
		slog.Error("failed to initialize generator", "type", cfg.Generator.Type, "error", err)
		os.Exit(1)
	}

	ix := index.New(newEmbedder(cfg.Embedder), idxStore)
	pipeline := rag.New(reg, ix, gen,
		rag.WithSplitter(splitter),
		rag.WithTopK(cfg.Pipeline.TopK),
	)

	srv := server.New(pipeline, reg, cfg.Server.UploadDir)

	slog.Info("server listening", "addr", cfg.Server.Addr,
		"registry", cfg.Registry.Type, "index", cfg.Index.Type, "generator", cfg.Generator.Type)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newRegistryStore(ctx context.Context, cfg config.RegistryConfig) (registry.Store, error) {
	switch cfg.Type {
	case "jsonfile":
		return jsonfile.New(cfg.Path)

	case "inmemory":
		return regmem.New(), nil

	case "sqlite":
		return sqlite.New(cfg.DSN)

	case "postgres":
		return regpostgres.New(cfg.DSN)

	case "mysql":
		return mysql.New(cfg.DSN)

	case "mssql":
		return mssql.New(cfg.DSN)

	case "redis":
		opts, err := goredis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return regredis.New(client), nil

	case "mongo":
		opts := options.Client().ApplyURI(cfg.DSN)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return regmongo.New(client, dbName, consts.TableNameClusters), nil

	case "neo4j":
		dbName := "neo4j"
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return regneo4j.New(cfg.DSN, cfg.Username, cfg.Password, dbName)

	default:
		return nil, fmt.Errorf("unsupported registry type: %s", cfg.Type)
	}
}

func newIndexStore(cfg config.IndexConfig) (index.Store, error) {
	switch cfg.Type {
	case "memory":
		return idxmem.New(), nil

	case "qdrant":
		q := cfg.Qdrant
		return idxqdrant.New(q.Host, q.Port, q.Collection, q.VectorSize)

	case "postgres":
		return idxpostgres.New(cfg.DSN)

	default:
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig) index.Embedder {
	var opts []option.RequestOption
	if key := os.Getenv(cfg.APIKeyEnv); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	embedder := idxopenai.NewEmbedder(opts...)
	if cfg.Model != "" {
		embedder.SetModel(openai.EmbeddingModel(cfg.Model))
	}
	return embedder
}

func newGenerator(cfg config.GeneratorConfig) (generation.Generator, error) {
	switch cfg.Type {
	case "gemini":
		return gemini.New(gemini.Config{
			APIKey: os.Getenv(cfg.APIKeyEnv),
			Model:  cfg.Model,
		})

	case "openai":
		var opts []option.RequestOption
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
		gen := genopenai.New(opts...)
		if cfg.Model != "" {
			gen.SetModel(cfg.Model)
		}
		return gen, nil

	default:
		return nil, fmt.Errorf("unsupported generator type: %s", cfg.Type)
	}
}
