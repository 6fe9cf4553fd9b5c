// Package embed generates dense sentence embeddings for article text.
package embed

import (
	"context"
	"fmt"
	"math"

	"manthan/internal/config"
	"manthan/internal/core"

	"google.golang.org/genai"
)

// Embedder turns text into an L2-normalized vector of core.EmbeddingDim.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Gemini is an Embedder backed by the Gemini embedding API, truncated to
// core.EmbeddingDim via Matryoshka output dimensionality and normalized
// client-side.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini embedder. A missing API key or client setup
// failure is fatal: the pipeline cannot run without an embedder.
func NewGemini(ctx context.Context, cfg config.Gemini) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or gemini.api_key in the config file")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = "gemini-embedding-001"
	}

	return &Gemini{client: client, model: model}, nil
}

// Embed generates an embedding for the given text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	// Conservative limit for the embedding model's token budget.
	if len(text) > 8000 {
		text = text[:8000]
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}

	dims := int32(core.EmbeddingDim)
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned from API")
	}

	values := resp.Embeddings[0].Values
	if len(values) != core.EmbeddingDim {
		return nil, fmt.Errorf("embedding has dimension %d, want %d", len(values), core.EmbeddingDim)
	}

	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return Normalize(vec), nil
}

// Normalize returns the unit-norm form of vec. A zero vector is returned
// unchanged.
func Normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// Cosine calculates the cosine similarity between two embeddings.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
