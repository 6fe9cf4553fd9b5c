package pipeline

import (
	"context"
	"time"

	"manthan/internal/core"
	"manthan/internal/label"
)

// ArticleStore is the persistence surface the coordinator drives. The
// concrete implementation is internal/store; tests substitute fakes.
type ArticleStore interface {
	// SelectUnclustered returns unassigned articles in the window, oldest
	// first by publication date.
	SelectUnclustered(maxAge time.Duration, limit int) ([]core.Article, error)

	// PersistEnrichment writes embeddings and entities transactionally.
	PersistEnrichment(articles []core.Article) error

	// CommitClusters inserts clusters and assigns members atomically.
	CommitClusters(clusters []core.Cluster, assignment map[string]string) error
}

// Enricher computes the fused vector and entity list per article.
type Enricher interface {
	EnrichAll(ctx context.Context, articles []core.Article) []core.Article
}

// Labeler produces neutral labels for clusters of members.
type Labeler interface {
	LabelAll(ctx context.Context, memberSets [][]core.Article) []label.Label
}

// Refiner audits recent clusters and splits incoherent ones.
type Refiner interface {
	Refine(ctx context.Context) error
}
