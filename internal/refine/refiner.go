// Package refine audits recent story clusters and splits the ones whose
// members have drifted apart in embedding space.
package refine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"manthan/internal/cluster"
	"manthan/internal/core"
	"manthan/internal/embed"
	"manthan/internal/label"
	"manthan/internal/logger"
	"manthan/internal/stats"
	"manthan/internal/store"

	"github.com/google/uuid"
)

const (
	// auditWindow bounds the refiner to clusters created recently; older
	// stories are settled and no longer worth re-examining.
	auditWindow = 24 * time.Hour

	// minMembers is the smallest cluster worth a coherence check.
	minMembers = 4

	// coherenceThreshold is the average member-to-centroid similarity
	// below which a cluster is considered to mix unrelated events.
	coherenceThreshold = 0.60
)

// ClusterStore is the persistence surface the refiner drives.
type ClusterStore interface {
	LoadRecentClusters(maxAge time.Duration, limit int) ([]core.Cluster, error)
	LoadClusterArticles(clusterID string) ([]core.Article, error)
	SplitCluster(oldID string, replacements []core.Cluster, assignment map[string]string) error
}

// Labeler relabels the sub-clusters a split produces.
type Labeler interface {
	Label(ctx context.Context, members []core.Article) label.Label
}

// Refiner walks recent clusters sequentially and transactionally replaces
// incoherent ones with their re-clustered parts. It is safe to run
// concurrently with the pipeline: a split whose target cluster has already
// been replaced aborts silently.
type Refiner struct {
	store   ClusterStore
	labeler Labeler
}

// New creates a Refiner.
func New(store ClusterStore, labeler Labeler) *Refiner {
	return &Refiner{store: store, labeler: labeler}
}

// Refine audits every cluster created within the window.
func (r *Refiner) Refine(ctx context.Context) error {
	clusters, err := r.store.LoadRecentClusters(auditWindow, 0)
	if err != nil {
		return fmt.Errorf("failed to load recent clusters: %w", err)
	}

	for _, c := range clusters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.refineOne(ctx, c); err != nil {
			// One bad cluster must not stall the audit of the rest.
			logger.Warn("refine: cluster audit failed", "cluster_id", c.ID, "error", err.Error())
		}
	}
	return nil
}

func (r *Refiner) refineOne(ctx context.Context, c core.Cluster) error {
	members, err := r.store.LoadClusterArticles(c.ID)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}

	embedded := make([]core.Article, 0, len(members))
	for _, m := range members {
		if m.HasEmbedding() {
			embedded = append(embedded, m)
		}
	}
	if len(embedded) < minMembers {
		return nil
	}

	if coherence(embedded) >= coherenceThreshold {
		return nil
	}

	// Re-cluster ascending by publication date, the same order the
	// pipeline would have fed these articles originally.
	sort.Slice(embedded, func(i, j int) bool {
		return embedded[i].PubDate.Before(embedded[j].PubDate)
	})
	micros := cluster.Assign(embedded)
	if len(micros) < 2 {
		return nil
	}

	replacements := make([]core.Cluster, 0, len(micros))
	assignment := make(map[string]string)
	now := time.Now().UTC()

	for _, m := range micros {
		lbl := r.labeler.Label(ctx, m.Members)
		id := uuid.NewString()
		replacements = append(replacements, core.Cluster{
			ID:           id,
			Headline:     lbl.Headline,
			Summary:      lbl.Summary,
			Category:     lbl.Category,
			MainImageURL: stats.MainImage(m.Members),
			CreatedAt:    now,
			Stats:        stats.Compute(m.Members),
		})
		for _, member := range m.Members {
			assignment[member.ID] = id
		}
	}

	err = r.store.SplitCluster(c.ID, replacements, assignment)
	if errors.Is(err, store.ErrClusterGone) {
		// A concurrent run already replaced this cluster.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to split cluster: %w", err)
	}

	logger.Info("refine: split incoherent cluster",
		"cluster_id", c.ID,
		"replacements", len(replacements),
		"members", len(embedded))
	return nil
}

// coherence is the average cosine similarity of each member to the simple
// normalized centroid of all members.
func coherence(members []core.Article) float64 {
	centroid := make([]float64, core.EmbeddingDim)
	for _, m := range members {
		for i, v := range m.Embedding {
			centroid[i] += v
		}
	}
	centroid = embed.Normalize(centroid)

	var total float64
	for _, m := range members {
		total += embed.Cosine(m.Embedding, centroid)
	}
	return total / float64(len(members))
}
