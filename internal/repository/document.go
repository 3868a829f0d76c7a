package repository

import (
	"context"

	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DocumentRepository writes chunk rows to the documents table.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

// InsertRow appends one row. Rows are never updated or deduplicated.
func (r *DocumentRepository) InsertRow(ctx context.Context, row domain.StoredRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (text, n_tokens, file_path, embeddings)
		 VALUES ($1, $2, $3, $4)`,
		row.Text,
		row.TokenCount,
		row.Identifier,
		pgvector.NewVector(row.Embedding),
	)
	return err
}

// Count returns the number of stored rows.
func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountByFile returns the number of rows stored for one source file.
func (r *DocumentRepository) CountByFile(ctx context.Context, filePath string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE file_path = $1`, filePath).Scan(&n)
	return n, err
}
