// Package pipeline drives one end-to-end analysis run: select, enrich,
// cluster, label, commit, refine.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"manthan/internal/cluster"
	"manthan/internal/core"
	"manthan/internal/logger"
	"manthan/internal/stats"

	"github.com/google/uuid"
)

// Defaults for the selection window.
const (
	DefaultMaxAge = 72 * time.Hour
	DefaultLimit  = 50
)

// Coordinator runs the analysis pipeline. A process-wide mutex ensures at
// most one run executes at a time; two concurrent runs would double-assign
// the same unclustered articles.
type Coordinator struct {
	store    ArticleStore
	enricher Enricher
	labeler  Labeler
	refiner  Refiner

	maxAge time.Duration
	limit  int

	mu sync.Mutex
}

// Result summarizes one pipeline run.
type Result struct {
	ClustersGenerated int `json:"clusters_generated"`
}

// New creates a Coordinator. refiner may be nil when coherence refinement is
// scheduled separately.
func New(store ArticleStore, enricher Enricher, labeler Labeler, refiner Refiner) *Coordinator {
	return &Coordinator{
		store:    store,
		enricher: enricher,
		labeler:  labeler,
		refiner:  refiner,
		maxAge:   DefaultMaxAge,
		limit:    DefaultLimit,
	}
}

// WithWindow overrides the selection window and batch limit.
func (c *Coordinator) WithWindow(maxAge time.Duration, limit int) *Coordinator {
	c.maxAge = maxAge
	c.limit = limit
	return c
}

// Run executes one pipeline cycle. Errors while persisting enrichment or
// committing clusters abort the run; the failed transaction rolls back and
// no partial assignment becomes visible.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &Result{}

	articles, err := c.store.SelectUnclustered(c.maxAge, c.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select unclustered articles: %w", err)
	}

	// A single article cannot form a story worth labeling; leave it for a
	// later run when related coverage may have arrived.
	if len(articles) >= 2 {
		enriched := c.enricher.EnrichAll(ctx, articles)

		if err := c.store.PersistEnrichment(enriched); err != nil {
			return nil, fmt.Errorf("failed to persist enrichment: %w", err)
		}

		// Input is already ascending by pub_date; the clusterer depends
		// on that order for deterministic anchoring.
		micros := cluster.Assign(enriched)

		if len(micros) > 0 {
			clusters, assignment := c.buildClusters(ctx, micros)
			if err := c.store.CommitClusters(clusters, assignment); err != nil {
				return nil, fmt.Errorf("failed to commit clusters: %w", err)
			}
			result.ClustersGenerated = len(clusters)
		}

		logger.Info("pipeline: run complete",
			"articles", len(articles),
			"clusters", result.ClustersGenerated)
	}

	if c.refiner != nil {
		if err := c.refiner.Refine(ctx); err != nil {
			// The run itself already committed; refinement failures are
			// retried on the next cycle.
			logger.Warn("pipeline: coherence refinement failed", "error", err.Error())
		}
	}

	return result, nil
}

func (c *Coordinator) buildClusters(ctx context.Context, micros []*cluster.Micro) ([]core.Cluster, map[string]string) {
	memberSets := make([][]core.Article, len(micros))
	for i, m := range micros {
		memberSets[i] = m.Members
	}

	labels := c.labeler.LabelAll(ctx, memberSets)

	clusters := make([]core.Cluster, 0, len(micros))
	assignment := make(map[string]string)

	now := time.Now().UTC()
	for i, m := range micros {
		id := uuid.NewString()
		clusters = append(clusters, core.Cluster{
			ID:           id,
			Headline:     labels[i].Headline,
			Summary:      labels[i].Summary,
			Category:     labels[i].Category,
			MainImageURL: stats.MainImage(m.Members),
			CreatedAt:    now,
			Stats:        stats.Compute(m.Members),
		})
		for _, member := range m.Members {
			assignment[member.ID] = id
		}
	}

	return clusters, assignment
}
