package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/docingest/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// DefaultRetryBackoff is the wait before the second attempt; it doubles per attempt.
	DefaultRetryBackoff = 2 * time.Second
)

// Embedder converts one text into an embedding vector
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ProgressFunc receives a progress event after each embedded chunk.
type ProgressFunc func(domain.Progress)

// LogProgress is a ProgressFunc that writes one log line per item.
func LogProgress(p domain.Progress) {
	log.Printf("finished embedding %s %d/%d", p.Identifier, p.Completed, p.Total)
}

// EmbeddingService embeds chunks one at a time, in order.
type EmbeddingService struct {
	embedder    Embedder
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// EmbeddingOption configures an EmbeddingService.
type EmbeddingOption func(*EmbeddingService)

// WithMaxAttempts allows up to n calls per chunk. n <= 1 disables retry.
func WithMaxAttempts(n int) EmbeddingOption {
	return func(s *EmbeddingService) {
		if n > 1 {
			s.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the wait before the first retry.
func WithRetryBackoff(d time.Duration) EmbeddingOption {
	return func(s *EmbeddingService) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

// WithRateLimit caps calls to rps per second. rps <= 0 means unlimited.
func WithRateLimit(rps float64) EmbeddingOption {
	return func(s *EmbeddingService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(embedder Embedder, opts ...EmbeddingOption) *EmbeddingService {
	s := &EmbeddingService{
		embedder:    embedder,
		maxAttempts: 1,
		backoff:     DefaultRetryBackoff,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmbedChunks embeds every chunk sequentially. The first failure aborts the
// stage and no partial result is returned.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []domain.Chunk, onProgress ProgressFunc) ([]domain.EmbeddedChunk, error) {
	embedded := make([]domain.EmbeddedChunk, 0, len(chunks))
	total := len(chunks)

	for i, chunk := range chunks {
		vec, err := s.embedOne(ctx, chunk.Text)
		if err != nil {
			return nil, domain.ExternalError(domain.StageEmbed,
				fmt.Sprintf("failed to generate embedding for %s (%d/%d)", chunk.Identifier, i+1, total), err)
		}

		embedded = append(embedded, domain.EmbeddedChunk{
			Chunk:     chunk,
			Embedding: vec,
		})

		if onProgress != nil {
			onProgress(domain.Progress{
				Identifier: chunk.Identifier,
				Completed:  i + 1,
				Total:      total,
			})
		}
	}

	return embedded, nil
}

// embedOne calls the embedder with retry. Blank text never reaches the
// provider and gets an empty vector; persistence pads or skips it.
func (s *EmbeddingService) embedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	var lastErr error
	wait := s.backoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			log.Printf("embedding attempt %d/%d failed: %v, retrying in %s", attempt-1, s.maxAttempts, lastErr, wait)
			if err := s.sleep(ctx, wait); err != nil {
				return nil, err
			}
			wait *= 2
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vec, err := s.embedder.GenerateEmbedding(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
