// Package pipeline runs the ingestion stages in order: load, tokenize, split,
// embed and persist. Every stage result is memoized in a cache.Store so a
// rerun resumes after the last completed stage.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path"

	"github.com/cloo-solutions/docingest/internal/cache"
	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/cloo-solutions/docingest/internal/service"
	"github.com/cloo-solutions/docingest/internal/telemetry"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// DocumentLoader lists the raw documents of one folder
type DocumentLoader interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// Keys are the artifact names of one folder's run.
type Keys struct {
	Texts      string
	Tokens     string
	Chunks     string
	Embeddings string
	Persisted  string
}

// KeysFor returns the stable artifact keys for folder.
func KeysFor(folder string) Keys {
	return Keys{
		Texts:      path.Join(folder, "texts.json"),
		Tokens:     path.Join(folder, "textTokens.json"),
		Chunks:     path.Join(folder, "shortenedTexts.json"),
		Embeddings: path.Join(folder, "textTokensEmbeddings.json"),
		Persisted:  path.Join(folder, "persisted.json"),
	}
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Loader    DocumentLoader
	Counter   service.TokenCounter
	Chunker   *service.Chunker
	Embedder  *service.EmbeddingService
	Persister *service.PersistService
	Cache     cache.Store
	// OnProgress receives embedding progress; nil logs each item.
	OnProgress service.ProgressFunc
}

// Result summarizes one run.
type Result struct {
	RunID     string
	Documents int
	Chunks    int
	Embedded  int
	Summary   domain.PersistSummary
}

type Pipeline struct {
	folder string
	keys   Keys
	deps   Deps
}

func New(folder string, deps Deps) *Pipeline {
	if deps.OnProgress == nil {
		deps.OnProgress = service.LogProgress
	}
	return &Pipeline{
		folder: folder,
		keys:   KeysFor(folder),
		deps:   deps,
	}
}

// Keys returns the artifact keys this pipeline reads and writes.
func (p *Pipeline) Keys() Keys {
	return p.keys
}

// Run executes every stage. The first failure aborts the run; artifacts of
// stages that completed before it stay in the cache.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: uuid.NewString()}

	ctx, span := telemetry.StartTransaction(ctx, "docingest run "+p.folder, "pipeline.run")
	defer span.End()

	log.Printf("pipeline: run %s started for folder %s", result.RunID, p.folder)

	docs, err := runStage(ctx, p, result.RunID, domain.StageLoad, p.keys.Texts, p.deps.Loader.Load)
	if err != nil {
		span.SetError(err)
		return result, err
	}
	result.Documents = len(docs)

	tokenized, err := runStage(ctx, p, result.RunID, domain.StageTokenize, p.keys.Tokens,
		func(ctx context.Context) ([]domain.TokenizedDocument, error) {
			return p.tokenize(docs), nil
		})
	if err != nil {
		span.SetError(err)
		return result, err
	}

	chunks, err := runStage(ctx, p, result.RunID, domain.StageSplit, p.keys.Chunks,
		func(ctx context.Context) ([]domain.Chunk, error) {
			return p.deps.Chunker.SplitAll(tokenized), nil
		})
	if err != nil {
		span.SetError(err)
		return result, err
	}
	result.Chunks = len(chunks)

	embedded, err := runStage(ctx, p, result.RunID, domain.StageEmbed, p.keys.Embeddings,
		func(ctx context.Context) ([]domain.EmbeddedChunk, error) {
			return p.deps.Embedder.EmbedChunks(ctx, chunks, p.deps.OnProgress)
		})
	if err != nil {
		span.SetError(err)
		return result, err
	}
	result.Embedded = len(embedded)

	summary, err := runStage(ctx, p, result.RunID, domain.StagePersist, p.keys.Persisted,
		func(ctx context.Context) (domain.PersistSummary, error) {
			return p.deps.Persister.Persist(ctx, embedded)
		})
	if err != nil {
		span.SetError(err)
		return result, err
	}
	result.Summary = summary

	span.SetStatus(sentry.SpanStatusOK)
	log.Printf("pipeline: run %s finished: %d documents, %d chunks, saved %d, skipped %d",
		result.RunID, result.Documents, result.Chunks, summary.Saved, summary.Skipped)
	return result, nil
}

func (p *Pipeline) tokenize(docs []domain.Document) []domain.TokenizedDocument {
	out := make([]domain.TokenizedDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.TokenizedDocument{
			Document:   doc,
			TokenCount: p.deps.Counter.Count(doc.Text),
		})
	}
	return out
}

// runStage memoizes one stage under key inside its own span. Cache failures
// are reported as I/O errors of that stage.
func runStage[T any](ctx context.Context, p *Pipeline, runID, stage, key string, producer func(context.Context) (T, error)) (T, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+stage, telemetry.SpanAttributes{
		RunID:    runID,
		Folder:   p.folder,
		Stage:    stage,
		CacheKey: key,
	})
	defer span.End()

	log.Printf("pipeline: %s", stage)
	telemetry.AddBreadcrumb(ctx, "pipeline", fmt.Sprintf("stage %s (%s)", stage, key))

	out, err := cache.Cached(ctx, p.deps.Cache, key, producer)
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.IOError(stage, "cache "+key, err)
		}
		span.SetError(err)
		return out, err
	}

	span.SetStatus(sentry.SpanStatusOK)
	return out, nil
}
