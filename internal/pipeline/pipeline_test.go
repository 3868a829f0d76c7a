package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/docingest/internal/cache"
	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/cloo-solutions/docingest/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

// punctCounter also counts every "." as a token, so joining sentences costs
// one token per separator.
type punctCounter struct{}

func (punctCounter) Count(text string) int {
	return len(strings.Fields(text)) + strings.Count(text, ".")
}

type fakeLoader struct {
	docs  []domain.Document
	err   error
	calls int
}

func (l *fakeLoader) Load(ctx context.Context) ([]domain.Document, error) {
	l.calls++
	return l.docs, l.err
}

type fakeEmbedder struct {
	failOn string
	calls  int
}

func (e *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("provider unavailable")
	}
	return []float32{float32(len(text)), 1}, nil
}

type recordingWriter struct {
	rows []domain.StoredRow
}

func (w *recordingWriter) InsertRow(ctx context.Context, row domain.StoredRow) error {
	w.rows = append(w.rows, row)
	return nil
}

func sentences(prefix string, n, wordsEach int) string {
	out := make([]string, n)
	for i := range out {
		ws := make([]string, wordsEach)
		for j := range ws {
			ws[j] = fmt.Sprintf("%s%d_%d", prefix, i, j)
		}
		out[i] = strings.Join(ws, " ")
	}
	return strings.Join(out, service.SentenceSeparator)
}

// scenarioDocs returns a 50-token single sentence, a 1200-token document of
// short sentences, and an empty document.
func scenarioDocs() []domain.Document {
	return []domain.Document{
		{Identifier: "a.txt", Text: sentences("alpha", 1, 50)},
		{Identifier: "b.txt", Text: sentences("beta", 120, 10)},
		{Identifier: "c.txt", Text: ""},
	}
}

type fixture struct {
	counter  service.TokenCounter
	loader   *fakeLoader
	embedder *fakeEmbedder
	writer   *recordingWriter
	store    *cache.FileStore
}

func newFixture(t *testing.T, docs []domain.Document) *fixture {
	return &fixture{
		counter:  wordCounter{},
		loader:   &fakeLoader{docs: docs},
		embedder: &fakeEmbedder{},
		writer:   &recordingWriter{},
		store:    cache.NewFileStore(t.TempDir()),
	}
}

func (f *fixture) pipeline(cfg service.ChunkConfig) *Pipeline {
	return New("gama", Deps{
		Loader:     f.loader,
		Counter:    f.counter,
		Chunker:    service.NewChunker(f.counter, cfg),
		Embedder:   service.NewEmbeddingService(f.embedder),
		Persister:  service.NewPersistService(f.writer, f.counter, service.PersistConfig{MinTextLength: 100, EmbeddingDimension: 8}),
		Cache:      f.store,
		OnProgress: func(domain.Progress) {},
	})
}

func chunksByFile(chunks []domain.Chunk) map[string][]domain.Chunk {
	out := make(map[string][]domain.Chunk)
	for _, ch := range chunks {
		out[ch.Identifier] = append(out[ch.Identifier], ch)
	}
	return out
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	p := f.pipeline(service.DefaultChunkConfig())
	ctx := context.Background()

	result, err := p.Run(ctx)
	require.NoError(t, err)

	chunks, err := cache.Cached(ctx, f.store, p.Keys().Chunks, func(context.Context) ([]domain.Chunk, error) {
		t.Fatal("chunk artifact should exist")
		return nil, nil
	})
	require.NoError(t, err)

	byFile := chunksByFile(chunks)
	require.Len(t, byFile["a.txt"], 1)
	assert.Equal(t, 50, byFile["a.txt"][0].TokenCount)

	require.GreaterOrEqual(t, len(byFile["b.txt"]), 3)
	for _, ch := range byFile["b.txt"] {
		// a closed chunk also carries the sentence that overflowed it
		assert.LessOrEqual(t, ch.TokenCount, 510)
	}

	require.Len(t, byFile["c.txt"], 1)
	assert.Equal(t, "", byFile["c.txt"][0].Text)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Documents)
	assert.Equal(t, len(chunks), result.Chunks)
	assert.Equal(t, len(chunks), result.Embedded)
	assert.Equal(t, 1, result.Summary.Skipped)
	assert.Equal(t, len(chunks)-1, result.Summary.Saved)

	// the empty document never reaches the provider nor the sink
	assert.Equal(t, len(chunks)-1, f.embedder.calls)
	for _, row := range f.writer.rows {
		assert.NotEqual(t, "c.txt", row.Identifier)
		assert.Len(t, row.Embedding, 8)
		assert.Equal(t, wordCounter{}.Count(row.Text), row.TokenCount)
	}
}

func TestPipeline_Run_EndToEnd_DeferPolicy(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	p := f.pipeline(service.ChunkConfig{MaxTokens: 500, Overflow: service.OverflowDefer})
	ctx := context.Background()

	_, err := p.Run(ctx)
	require.NoError(t, err)

	chunks, err := cache.Cached(ctx, f.store, p.Keys().Chunks, func(context.Context) ([]domain.Chunk, error) {
		return nil, errors.New("chunk artifact should exist")
	})
	require.NoError(t, err)

	byFile := chunksByFile(chunks)
	assert.Len(t, byFile["a.txt"], 1)
	assert.Len(t, byFile["c.txt"], 1)
	require.GreaterOrEqual(t, len(byFile["b.txt"]), 3)
	texts := make([]string, 0, len(byFile["b.txt"]))
	for _, ch := range byFile["b.txt"] {
		assert.LessOrEqual(t, ch.TokenCount, 500)
		texts = append(texts, ch.Text)
	}
	assert.Equal(t, scenarioDocs()[1].Text, strings.Join(texts, service.SentenceSeparator))
}

func TestPipeline_Run_EndToEnd_DeferPolicySeparatorsCostTokens(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	f.counter = punctCounter{}
	p := f.pipeline(service.ChunkConfig{MaxTokens: 500, Overflow: service.OverflowDefer})
	ctx := context.Background()

	_, err := p.Run(ctx)
	require.NoError(t, err)

	chunks, err := cache.Cached(ctx, f.store, p.Keys().Chunks, func(context.Context) ([]domain.Chunk, error) {
		return nil, errors.New("chunk artifact should exist")
	})
	require.NoError(t, err)

	byFile := chunksByFile(chunks)
	require.GreaterOrEqual(t, len(byFile["b.txt"]), 3)
	texts := make([]string, 0, len(byFile["b.txt"]))
	for _, ch := range byFile["b.txt"] {
		assert.LessOrEqual(t, ch.TokenCount, 500)
		assert.Equal(t, punctCounter{}.Count(ch.Text), ch.TokenCount)
		texts = append(texts, ch.Text)
	}
	// 45 sentences of 10 words and 44 separators fill the first chunk
	assert.Equal(t, 494, byFile["b.txt"][0].TokenCount)
	assert.Equal(t, scenarioDocs()[1].Text, strings.Join(texts, service.SentenceSeparator))

	for _, row := range f.writer.rows {
		assert.Equal(t, punctCounter{}.Count(row.Text), row.TokenCount)
	}
}

func TestPipeline_Run_WritesEveryArtifact(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	p := f.pipeline(service.DefaultChunkConfig())

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"texts.json", "textTokens.json", "shortenedTexts.json", "textTokensEmbeddings.json", "persisted.json"} {
		_, err := os.Stat(filepath.Join(f.store.Dir(), "gama", name))
		assert.NoError(t, err, name)
	}
}

func TestPipeline_Run_RerunUsesArtifacts(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	p := f.pipeline(service.DefaultChunkConfig())
	ctx := context.Background()

	first, err := p.Run(ctx)
	require.NoError(t, err)
	embedCalls := f.embedder.calls
	rows := len(f.writer.rows)

	second, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, f.loader.calls)
	assert.Equal(t, embedCalls, f.embedder.calls)
	assert.Len(t, f.writer.rows, rows)
	assert.Equal(t, first.Summary, second.Summary)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPipeline_Run_EmbedFailureResumes(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	f.embedder.failOn = "beta60_"
	p := f.pipeline(service.ChunkConfig{MaxTokens: 500, Overflow: service.OverflowDefer})
	ctx := context.Background()

	_, err := p.Run(ctx)

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindExternal))
	assert.Empty(t, f.writer.rows)

	exists, err := f.store.Exists(ctx, p.Keys().Embeddings)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = f.store.Exists(ctx, p.Keys().Chunks)
	require.NoError(t, err)
	assert.True(t, exists)

	f.embedder.failOn = ""
	result, err := p.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, f.loader.calls)
	assert.Equal(t, result.Summary.Saved, len(f.writer.rows))
}

func TestPipeline_Run_LoadFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.loader.err = domain.IOError(domain.StageLoad, "failed to read data/gama", os.ErrNotExist)
	p := f.pipeline(service.DefaultChunkConfig())

	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindIO))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, f.embedder.calls)
}

func TestPipeline_Run_CorruptArtifactIsIOError(t *testing.T) {
	f := newFixture(t, scenarioDocs())
	p := f.pipeline(service.DefaultChunkConfig())
	ctx := context.Background()

	require.NoError(t, f.store.Write(ctx, p.Keys().Texts, []byte("{not json")))

	_, err := p.Run(ctx)

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindIO))
	assert.Contains(t, err.Error(), "texts.json")
	assert.Zero(t, f.loader.calls)
}

func TestKeysFor(t *testing.T) {
	keys := KeysFor("netlogo")

	assert.Equal(t, "netlogo/texts.json", keys.Texts)
	assert.Equal(t, "netlogo/textTokens.json", keys.Tokens)
	assert.Equal(t, "netlogo/shortenedTexts.json", keys.Chunks)
	assert.Equal(t, "netlogo/textTokensEmbeddings.json", keys.Embeddings)
	assert.Equal(t, "netlogo/persisted.json", keys.Persisted)
}
