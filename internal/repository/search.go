package repository

import (
	"context"

	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const defaultSearchLimit = 5

// SearchRepository runs similarity queries over stored rows.
type SearchRepository struct {
	db dbtx
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{db: pool}
}

// SearchByEmbedding returns the rows closest to embedding by cosine distance,
// best first, scored 1/(1+distance).
func (r *SearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.SearchHit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, file_path, text, n_tokens,
		        1.0 / (1.0 + (embeddings <=> $1)) AS score
		 FROM documents
		 WHERE embeddings IS NOT NULL
		 ORDER BY embeddings <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.SearchHit, 0)
	for rows.Next() {
		var hit domain.SearchHit
		if err := rows.Scan(&hit.ID, &hit.Identifier, &hit.Text, &hit.TokenCount, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}
