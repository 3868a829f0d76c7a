package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docingest/internal/domain"
)

// RowWriter writes one stored row
type RowWriter interface {
	InsertRow(ctx context.Context, row domain.StoredRow) error
}

// PersistConfig controls filtering and vector shaping before writes.
type PersistConfig struct {
	// MinTextLength is counted in Unicode code points of the trimmed text, not
	// in UTF-16 code units, so characters outside the Basic Multilingual Plane
	// count once rather than twice.
	MinTextLength      int
	EmbeddingDimension int
}

// DefaultPersistConfig provides the reference persistence settings.
func DefaultPersistConfig() PersistConfig {
	return PersistConfig{
		MinTextLength:      100,
		EmbeddingDimension: 1536,
	}
}

// PersistService writes embedded chunks to a RowWriter.
type PersistService struct {
	writer  RowWriter
	counter TokenCounter
	cfg     PersistConfig
}

// NewPersistService creates a new PersistService instance
func NewPersistService(writer RowWriter, counter TokenCounter, cfg PersistConfig) *PersistService {
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = DefaultPersistConfig().EmbeddingDimension
	}
	if cfg.MinTextLength < 0 {
		cfg.MinTextLength = 0
	}
	return &PersistService{
		writer:  writer,
		counter: counter,
		cfg:     cfg,
	}
}

// Persist writes one row per item, in order. Items whose text, ignoring
// leading and trailing whitespace, is shorter than MinTextLength characters are
// skipped and counted. Whitespace-only text is always skipped. A write error
// aborts.
func (s *PersistService) Persist(ctx context.Context, items []domain.EmbeddedChunk) (domain.PersistSummary, error) {
	var summary domain.PersistSummary
	total := len(items)

	for _, item := range items {
		trimmed := strings.TrimSpace(item.Text)
		if trimmed == "" || utf8.RuneCountInString(trimmed) < s.cfg.MinTextLength {
			summary.Skipped++
			log.Printf("skipping %s: text shorter than %d characters (skipped %d)",
				item.Identifier, s.cfg.MinTextLength, summary.Skipped)
			continue
		}

		row := domain.StoredRow{
			Text:       item.Text,
			TokenCount: s.counter.Count(item.Text),
			Identifier: item.Identifier,
			Embedding:  domain.FitDimension(item.Embedding, s.cfg.EmbeddingDimension),
		}

		if err := s.writer.InsertRow(ctx, row); err != nil {
			return summary, domain.IOError(domain.StagePersist,
				fmt.Sprintf("failed to save %s", item.Identifier), err)
		}

		summary.Saved++
		log.Printf("saved %s (%d tokens) %d/%d", item.Identifier, row.TokenCount, summary.Saved+summary.Skipped, total)
	}

	return summary, nil
}
