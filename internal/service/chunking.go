package service

import (
	"strings"

	"github.com/cloo-solutions/docingest/internal/domain"
)

const (
	// SentenceSeparator splits documents into sentence units and joins them back.
	SentenceSeparator = ". "
	lineSeparator     = "\n"

	// UnknownTokenCount marks a document whose token count has not been computed.
	UnknownTokenCount = -1
)

// OverflowPolicy decides where the unit that overflows a chunk ends up.
type OverflowPolicy string

const (
	// OverflowDuplicate closes the open chunk with the overflowing unit and
	// also starts the next chunk with it, so the unit appears in both. Overflow
	// is decided on the sum of unit counts, so a closed chunk may exceed
	// MaxTokens by one unit plus its separators.
	OverflowDuplicate OverflowPolicy = "duplicate"
	// OverflowDefer closes the open chunk without the overflowing unit and
	// starts the next chunk with it. Overflow is decided on the token count of
	// the joined text, separators included, so only a single unit that is
	// itself over budget can exceed MaxTokens.
	OverflowDefer OverflowPolicy = "defer"
)

// IsValid reports whether p is a known policy
func (p OverflowPolicy) IsValid() bool {
	switch p {
	case OverflowDuplicate, OverflowDefer:
		return true
	}
	return false
}

// TokenCounter is the part of the tokenizer the chunker needs.
type TokenCounter interface {
	Count(text string) int
}

// ChunkConfig controls token-bounded chunking.
type ChunkConfig struct {
	MaxTokens int
	Overflow  OverflowPolicy
}

// DefaultChunkConfig provides the reference chunking settings.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens: 500,
		Overflow:  OverflowDuplicate,
	}
}

// Chunker splits documents into chunks of at most MaxTokens tokens.
type Chunker struct {
	counter TokenCounter
	cfg     ChunkConfig
}

// NewChunker creates a new Chunker. Zero or invalid config fields fall back to
// DefaultChunkConfig.
func NewChunker(counter TokenCounter, cfg ChunkConfig) *Chunker {
	def := DefaultChunkConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if !cfg.Overflow.IsValid() {
		cfg.Overflow = def.Overflow
	}
	return &Chunker{counter: counter, cfg: cfg}
}

// Config returns the effective configuration
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

type sentenceUnit struct {
	text   string
	tokens int
}

// Split chunks one document. A document within budget is returned whole.
func (c *Chunker) Split(doc domain.TokenizedDocument) []domain.Chunk {
	tokens := doc.TokenCount
	if tokens < 0 {
		tokens = c.counter.Count(doc.Text)
	}

	if tokens <= c.cfg.MaxTokens {
		return []domain.Chunk{{
			Identifier: doc.Identifier,
			Text:       doc.Text,
			TokenCount: tokens,
		}}
	}

	return c.pack(doc.Identifier, c.sentenceUnits(doc.Text))
}

// SplitAll chunks every document and flattens the result in document order.
func (c *Chunker) SplitAll(docs []domain.TokenizedDocument) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(docs))
	for _, doc := range docs {
		chunks = append(chunks, c.Split(doc)...)
	}
	return chunks
}

// sentenceUnits splits text on ". " and re-splits oversized sentences on
// newlines. Newline units are not split further.
func (c *Chunker) sentenceUnits(text string) []sentenceUnit {
	sentences := strings.Split(text, SentenceSeparator)
	units := make([]sentenceUnit, 0, len(sentences))

	for _, sentence := range sentences {
		n := c.counter.Count(sentence)
		if n <= c.cfg.MaxTokens {
			units = append(units, sentenceUnit{text: sentence, tokens: n})
			continue
		}
		for _, line := range strings.Split(sentence, lineSeparator) {
			units = append(units, sentenceUnit{text: line, tokens: c.counter.Count(line)})
		}
	}

	return units
}

func (c *Chunker) pack(identifier string, units []sentenceUnit) []domain.Chunk {
	var chunks []domain.Chunk
	var current []string
	tokensSoFar := 0

	flush := func() {
		text := strings.Join(current, SentenceSeparator)
		chunks = append(chunks, domain.Chunk{
			Identifier: identifier,
			Text:       text,
			TokenCount: c.counter.Count(text),
		})
		current = nil
		tokensSoFar = 0
	}

	for _, unit := range units {
		switch c.cfg.Overflow {
		case OverflowDefer:
			if len(current) > 0 && c.joinedCount(current, unit.text) > c.cfg.MaxTokens {
				flush()
			}
		default:
			if tokensSoFar+unit.tokens > c.cfg.MaxTokens {
				current = append(current, unit.text)
				flush()
			}
		}
		current = append(current, unit.text)
		tokensSoFar += unit.tokens
	}

	if len(current) > 0 {
		flush()
	}

	return chunks
}

// joinedCount is the token count of current with next appended, as flush
// would join them.
func (c *Chunker) joinedCount(current []string, next string) int {
	return c.counter.Count(strings.Join(current, SentenceSeparator) + SentenceSeparator + next)
}
