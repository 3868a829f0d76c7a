package domain

// Chunk is a token-bounded slice of a document's text.
type Chunk struct {
	Identifier string `json:"filePath"`
	Text       string `json:"text"`
	TokenCount int    `json:"tokenCount"`
}

// EmbeddedChunk is a chunk paired with its embedding vector
type EmbeddedChunk struct {
	Chunk
	Embedding []float32 `json:"embedding"`
}

// StoredRow is one row written to the documents table.
type StoredRow struct {
	Text       string
	TokenCount int
	Identifier string
	Embedding  []float32
}

// PersistSummary reports what the persistence stage wrote.
type PersistSummary struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// Progress is emitted after each embedded chunk
type Progress struct {
	Identifier string
	Completed  int
	Total      int
}

// FitDimension returns a copy of vec with exactly dim entries: missing trailing
// positions are zero and extra positions are dropped.
func FitDimension(vec []float32, dim int) []float32 {
	if dim < 0 {
		dim = 0
	}
	out := make([]float32, dim)
	copy(out, vec)
	return out
}

// SearchHit is one row returned by a similarity query.
type SearchHit struct {
	ID         int64   `json:"id"`
	Identifier string  `json:"filePath"`
	Text       string  `json:"text"`
	TokenCount int     `json:"tokenCount"`
	Score      float64 `json:"score"`
}
