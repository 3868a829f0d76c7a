// Package cli holds the docingest commands and the wiring from Config to the
// pipeline's collaborators.
package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/docingest/internal/cache"
	"github.com/cloo-solutions/docingest/internal/config"
	"github.com/cloo-solutions/docingest/internal/database"
	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/cloo-solutions/docingest/internal/gemini"
	"github.com/cloo-solutions/docingest/internal/openai"
	"github.com/cloo-solutions/docingest/internal/repository"
	"github.com/cloo-solutions/docingest/internal/service"
	"github.com/cloo-solutions/docingest/internal/sqlite"
	"github.com/cloo-solutions/docingest/internal/storage"
	"github.com/cloo-solutions/docingest/internal/telemetry"
	"github.com/cloo-solutions/docingest/migrations"
	goopenai "github.com/sashabaranov/go-openai"
)

// Sink stores rows and answers similarity queries.
type Sink interface {
	service.RowWriter
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.SearchHit, error)
}

type postgresSink struct {
	*repository.DocumentRepository
	*repository.SearchRepository
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	return cfg, nil
}

// setupTelemetry starts Sentry when a DSN is configured. The returned
// function flushes pending events.
func setupTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// 10% sampling outside development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

func newEmbedder(ctx context.Context, cfg *config.Config) (service.Embedder, func() error, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderGemini:
		e, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, domain.ExternalError(domain.StageEmbed, "failed to create gemini embedder", err)
		}
		return e, e.Close, nil
	default:
		c, err := openai.NewClientFromConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			EmbeddingModel: goopenai.EmbeddingModel(cfg.EmbeddingModel),
		})
		if err != nil {
			return nil, nil, domain.ConfigError("failed to create openai client", err)
		}
		return c, func() error { return nil }, nil
	}
}

func newEmbeddingService(embedder service.Embedder, cfg *config.Config) *service.EmbeddingService {
	return service.NewEmbeddingService(embedder,
		service.WithMaxAttempts(cfg.EmbedMaxAttempts),
		service.WithRateLimit(cfg.EmbedRequestsPerSecond),
	)
}

// openSink connects the configured row sink. Postgres is migrated first
// unless migrate is false.
func openSink(ctx context.Context, cfg *config.Config, migrate bool) (Sink, func(), error) {
	if cfg.Sink == config.SinkSQLite {
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, domain.IOError(domain.StagePersist, "failed to open sqlite database", err)
		}
		log.Printf("using sqlite database %s", store.Path())
		return store, func() { store.Close() }, nil
	}

	if migrate {
		if err := database.RunMigrations(cfg.DatabaseURL, migrations.FS); err != nil {
			return nil, nil, domain.IOError(domain.StagePersist, "failed to run migrations", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: 4})
	if err != nil {
		return nil, nil, domain.IOError(domain.StagePersist, "failed to connect to database", err)
	}
	log.Println("connected to database")

	return postgresSink{
		DocumentRepository: repository.NewDocumentRepository(pool),
		SearchRepository:   repository.NewSearchRepository(pool),
	}, pool.Close, nil
}

func newCacheStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.CacheBackend != config.CacheS3 {
		return cache.NewFileStore(cfg.CacheDir), nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, domain.ConfigError("failed to create S3 client", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, domain.IOError("", fmt.Sprintf("failed to prepare bucket %s", cfg.S3Bucket), err)
	}
	log.Printf("using S3 cache s3://%s/%s", client.Bucket(), cfg.S3Prefix)
	return cache.NewS3Store(client, cfg.S3Prefix), nil
}
