// Package cluster implements single-pass online clustering of embedded
// articles into candidate stories.
package cluster

import (
	"time"

	"manthan/internal/core"
	"manthan/internal/embed"
)

const (
	// TimeWindow is the maximum gap between an article and a cluster's
	// latest member for the two to describe the same event.
	TimeWindow = 48 * time.Hour

	// SimilarityThreshold is the minimum centroid similarity for joining
	// an existing cluster.
	SimilarityThreshold = 0.55

	// DuplicateThreshold is the member similarity above which an article
	// is treated as a republication rather than fresh coverage.
	DuplicateThreshold = 0.90

	// Centroid update weights. The old centroid dominates so early
	// reports keep anchoring the story.
	centroidOldWeight = 0.8
	centroidNewWeight = 0.2
)

// Micro is one candidate story produced by a clustering pass: its members,
// the running centroid, and the publication time of its newest member.
type Micro struct {
	Centroid   []float64
	Members    []core.Article
	LatestTime time.Time
}

// Assign runs a single pass over articles, in the order given, assigning
// each to an existing micro-cluster or opening a new one. The result is
// deterministic for a fixed input order; callers feed articles ascending by
// publication date so earlier reports anchor clusters.
//
// Articles without a usable embedding are ignored.
func Assign(articles []core.Article) []*Micro {
	var clusters []*Micro

	for _, article := range articles {
		if !article.HasEmbedding() {
			continue
		}
		place(&clusters, article)
	}

	return clusters
}

func place(clusters *[]*Micro, article core.Article) {
	v := article.Embedding
	t := article.PubDate
	headline := core.NormalizeHeadline(article.Headline)

	var best *Micro
	bestSim := -1.0

	for _, c := range *clusters {
		if absDuration(t.Sub(c.LatestTime)) > TimeWindow {
			continue
		}

		// Duplicate suppression: a republished or near-identical report
		// joins its cluster without moving the centroid. First matching
		// cluster in insertion order wins.
		if c.isDuplicate(headline, v) {
			c.Members = append(c.Members, article)
			if t.After(c.LatestTime) {
				c.LatestTime = t
			}
			return
		}

		// Strictly-greater comparison keeps the earliest-created cluster
		// on ties.
		if s := embed.Cosine(v, c.Centroid); s > bestSim {
			best = c
			bestSim = s
		}
	}

	if best != nil && bestSim >= SimilarityThreshold {
		best.Members = append(best.Members, article)
		best.Centroid = updateCentroid(best.Centroid, v)
		if t.After(best.LatestTime) {
			best.LatestTime = t
		}
		return
	}

	*clusters = append(*clusters, &Micro{
		Centroid:   v,
		Members:    []core.Article{article},
		LatestTime: t,
	})
}

func (c *Micro) isDuplicate(normalizedHeadline string, v []float64) bool {
	for _, m := range c.Members {
		if core.NormalizeHeadline(m.Headline) == normalizedHeadline {
			return true
		}
		if m.HasEmbedding() && embed.Cosine(v, m.Embedding) >= DuplicateThreshold {
			return true
		}
	}
	return false
}

func updateCentroid(centroid, v []float64) []float64 {
	out := make([]float64, len(centroid))
	for i := range centroid {
		out[i] = centroidOldWeight*centroid[i] + centroidNewWeight*v[i]
	}
	return embed.Normalize(out)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
