// Package gemini embeds text with Google's Gemini embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultEmbeddingModel is used when no model name is configured.
const DefaultEmbeddingModel = "gemini-embedding-001"

var (
	// ErrNoAPIKey is returned when no Gemini API key is configured
	ErrNoAPIKey = errors.New("Gemini API key not set")
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoEmbedding is returned when the response carries no vector
	ErrNoEmbedding = errors.New("no embedding returned")
)

// contentEmbedder is the slice of genai.EmbeddingModel the Embedder calls.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, parts ...genai.Part) (*genai.EmbedContentResponse, error)
}

type Embedder struct {
	client *genai.Client
	model  contentEmbedder
}

// NewEmbedder dials the Gemini API.
func NewEmbedder(ctx context.Context, apiKey, modelName string) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	return &Embedder{client: cl, model: cl.EmbeddingModel(modelName)}, nil
}

func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// GenerateEmbedding embeds one text.
func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrNoEmbedding
	}
	return res.Embedding.Values, nil
}
