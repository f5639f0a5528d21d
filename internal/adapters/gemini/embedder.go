// Package gemini embeds query text with the Gemini embeddings API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"poi_reconciler/internal/adapters/observability"
)

const DefaultModel = "text-embedding-004"

// contentEmbedder is the part of genai.Models the embedder calls.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Embedder struct {
	models contentEmbedder
	model  string
	dims   int32
}

// New creates an embedder for the Gemini API backend. dims of zero keeps the
// model's native dimensionality.
func New(ctx context.Context, apiKey, model string, dims int32) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return newEmbedder(client.Models, model, dims), nil
}

func newEmbedder(m contentEmbedder, model string, dims int32) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{models: m, model: model, dims: dims}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var cfg *genai.EmbedContentConfig
	if e.dims > 0 {
		dims := e.dims
		cfg = &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY", OutputDimensionality: &dims}
	}

	start := time.Now()
	resp, err := e.models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, cfg)
	if err != nil {
		observability.ObserveExternal("gemini", "embed", 500, time.Since(start))
		return nil, err
	}
	observability.ObserveExternal("gemini", "embed", 200, time.Since(start))

	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini: empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}
