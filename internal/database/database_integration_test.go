//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/cloo-solutions/docingest/internal/testutil"
	"github.com/cloo-solutions/docingest/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	require.NoError(t, RunMigrations(pc.ConnectionString(), migrations.FS))
	require.NoError(t, RunMigrations(pc.ConnectionString(), migrations.FS))

	pool, err := NewPool(ctx, Config{URL: pc.ConnectionString(), MaxConns: 2})
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'documents')`,
	).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), Config{URL: "://not-a-url"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database config")
}
