//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("DOCINGEST_OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("DOCINGEST_OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClientWithConfig(Config{APIKey: apiKey, ExpectedDimensions: DefaultEmbeddingDimensions})

	embedding, err := client.GenerateEmbedding(context.Background(), "Agents in GAMA belong to species.")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}
