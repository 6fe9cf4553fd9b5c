// Package enrich computes the fused article vector and entity list that the
// clusterer consumes.
package enrich

import (
	"context"
	"strings"

	"manthan/internal/core"
	"manthan/internal/embed"
	"manthan/internal/entities"
	"manthan/internal/logger"
)

// Weights for fusing the text vector with the entity vector. Entities sharpen
// who/where matching between reports of the same event without letting a
// shared cast of politicians collapse unrelated stories.
const (
	textWeight   = 0.7
	entityWeight = 0.3
)

// Enricher orchestrates the embedder and the entity extractor. Model
// instances are shared and immutable after construction; articles are
// processed sequentially because the embedding backend is not required to
// be reentrant.
type Enricher struct {
	embedder  embed.Embedder
	extractor *entities.Extractor
}

// New creates an Enricher over the given models.
func New(embedder embed.Embedder, extractor *entities.Extractor) *Enricher {
	return &Enricher{embedder: embedder, extractor: extractor}
}

// EnrichAll computes embeddings and entities for every article. A failure on
// one article leaves that article with its original (possibly nil) vector and
// does not stop the batch.
func (e *Enricher) EnrichAll(ctx context.Context, articles []core.Article) []core.Article {
	out := make([]core.Article, 0, len(articles))
	for _, article := range articles {
		enriched, err := e.enrich(ctx, article)
		if err != nil {
			logger.Warn("enrich: skipping article", "article_id", article.ID, "error", err.Error())
			out = append(out, article)
			continue
		}
		out = append(out, enriched)
	}
	return out
}

func (e *Enricher) enrich(ctx context.Context, article core.Article) (core.Article, error) {
	text := article.Headline + ". " + article.Summary

	textVec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return article, err
	}

	ents := e.extractor.Extract(ctx, text)

	vec := textVec
	if e.extractor.Enabled() && len(ents) > 0 {
		entityVec, err := e.embedder.Embed(ctx, strings.Join(ents, " "))
		if err != nil {
			// Entity vector is an optional refinement; keep the text vector.
			logger.Debug("enrich: entity embedding failed, using text vector", "article_id", article.ID, "error", err.Error())
			entityVec = textVec
		}
		fused := make([]float64, len(textVec))
		for i := range textVec {
			fused[i] = textWeight*textVec[i] + entityWeight*entityVec[i]
		}
		vec = embed.Normalize(fused)
	}

	article.Embedding = vec
	article.Entities = ents
	return article, nil
}
